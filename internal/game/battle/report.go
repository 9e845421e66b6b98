package battle

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// TickReport summarizes what one tick did.
type TickReport struct {
	Tick               uint64
	Now                time.Duration
	Steps              int
	Sidesteps          int
	Explores           int
	Attacks            int
	Kills              int
	BonusStrikes       int
	BonusSteps         int
	StructureHits      int
	StructureDestroyed bool
	Evicted            int
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r TickReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("tick", r.Tick)
	enc.AddDuration("now", r.Now)
	enc.AddInt("steps", r.Steps)
	enc.AddInt("sidesteps", r.Sidesteps)
	enc.AddInt("explores", r.Explores)
	enc.AddInt("attacks", r.Attacks)
	enc.AddInt("kills", r.Kills)
	enc.AddInt("bonus_strikes", r.BonusStrikes)
	enc.AddInt("bonus_steps", r.BonusSteps)
	enc.AddInt("structure_hits", r.StructureHits)
	enc.AddBool("structure_destroyed", r.StructureDestroyed)
	enc.AddInt("evicted", r.Evicted)
	return nil
}
