package dice

import "go.uber.org/zap"

// Roller rolls spreads from a Source and logs each roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the roller's randomness source.
func (r *Roller) Source() Source { return r.src }

// Roll rolls s and logs the dice.
//
// Postcondition: s.Min() <= result <= s.Max().
func (r *Roller) Roll(s Spread) int {
	dice, total := s.Roll(r.src)
	r.logger.Debug("dice roll",
		zap.String("spread", s.Raw),
		zap.Ints("dice", dice),
		zap.Int("modifier", s.Modifier),
		zap.Int("total", total),
	)
	return total
}
