package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/hexwar/internal/game/event"
)

// ErrBattleNotFound is returned when a battle ID has no row.
var ErrBattleNotFound = errors.New("battle not found")

// Battle is one recorded battle.
type Battle struct {
	ID         uuid.UUID
	ScenarioID string
	MapID      string
	Seed       uint64
	StartedAt  time.Time
	// FinishedAt is nil while the battle is running.
	FinishedAt *time.Time
	Winner     string
	Reason     string
	Ticks      uint64
}

// Record is one persisted event.
type Record struct {
	Tick    uint64
	Seq     int
	SimTime time.Duration
	Payload event.Payload
}

// BattleLogRepository stores the events of every tick so a battle can be
// replayed and verified against a re-run.
type BattleLogRepository struct {
	db *pgxpool.Pool
}

// NewBattleLogRepository creates a BattleLogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleLogRepository(db *pgxpool.Pool) *BattleLogRepository {
	return &BattleLogRepository{db: db}
}

// StartBattle inserts a new battle row.
//
// Postcondition: Returns the new battle's ID.
func (r *BattleLogRepository) StartBattle(ctx context.Context, scenarioID, mapID string, seed uint64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO battles (id, scenario_id, map_id, seed)
		 VALUES ($1, $2, $3, $4)`,
		id, scenarioID, mapID, int64(seed),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting battle: %w", err)
	}
	return id, nil
}

// AppendTick stores the events of one tick in emission order. Ticks without
// events write nothing.
//
// Precondition: battleID must come from StartBattle.
// Postcondition: All events are stored or none are.
func (r *BattleLogRepository) AppendTick(ctx context.Context, battleID uuid.UUID, tick uint64, simTime time.Duration, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	payloads := make([][]byte, len(events))
	for i, e := range events {
		data, err := event.MarshalPayload(e)
		if err != nil {
			return err
		}
		payloads[i] = data
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, e := range events {
			batch.Queue(
				`INSERT INTO battle_events (battle_id, tick, seq, sim_time_ms, kind, payload)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				battleID, int64(tick), i, simTime.Milliseconds(), string(e.Kind()), payloads[i],
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if isForeignKeyError(err) {
				return ErrBattleNotFound
			}
			return fmt.Errorf("inserting tick %d events: %w", tick, err)
		}
		return nil
	})
}

// FinishBattle records how the battle ended.
//
// Postcondition: Returns ErrBattleNotFound if battleID has no row.
func (r *BattleLogRepository) FinishBattle(ctx context.Context, battleID uuid.UUID, winner, reason string, ticks uint64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE battles
		 SET finished_at = NOW(), winner = $2, reason = $3, ticks = $4
		 WHERE id = $1`,
		battleID, winner, reason, int64(ticks),
	)
	if err != nil {
		return fmt.Errorf("finishing battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBattleNotFound
	}
	return nil
}

// GetBattle returns the battle row.
//
// Postcondition: Returns ErrBattleNotFound if battleID has no row.
func (r *BattleLogRepository) GetBattle(ctx context.Context, battleID uuid.UUID) (Battle, error) {
	var (
		b           Battle
		seed, ticks int64
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, scenario_id, map_id, seed, started_at, finished_at, winner, reason, ticks
		 FROM battles WHERE id = $1`,
		battleID,
	).Scan(&b.ID, &b.ScenarioID, &b.MapID, &seed, &b.StartedAt, &b.FinishedAt, &b.Winner, &b.Reason, &ticks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Battle{}, ErrBattleNotFound
		}
		return Battle{}, fmt.Errorf("querying battle: %w", err)
	}
	b.Seed, b.Ticks = uint64(seed), uint64(ticks)
	return b, nil
}

// ListByBattle returns every stored event of the battle ordered by tick and
// emission order.
//
// Postcondition: Returns ErrBattleNotFound if battleID has no row.
func (r *BattleLogRepository) ListByBattle(ctx context.Context, battleID uuid.UUID) ([]Record, error) {
	if _, err := r.GetBattle(ctx, battleID); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT tick, seq, sim_time_ms, payload
		 FROM battle_events WHERE battle_id = $1
		 ORDER BY tick, seq`,
		battleID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying battle events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			tick, simMs int64
			rec         Record
			raw         []byte
		)
		if err := rows.Scan(&tick, &rec.Seq, &simMs, &raw); err != nil {
			return nil, fmt.Errorf("scanning battle event: %w", err)
		}
		p, err := event.UnmarshalPayload(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding tick %d event %d: %w", tick, rec.Seq, err)
		}
		rec.Tick = uint64(tick)
		rec.SimTime = time.Duration(simMs) * time.Millisecond
		rec.Payload = p
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating battle events: %w", err)
	}
	return out, nil
}

// isForeignKeyError reports whether err is a foreign key violation
// (SQLSTATE 23503).
func isForeignKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23503"
	}
	return false
}
