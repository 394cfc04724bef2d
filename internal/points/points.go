// Package points implements the gamification ledger: an append-only
// point-transaction log, a monotone per-user point total, and a level
// derived from that total.
package points

import (
	"log/slog"
	"math"
)

// SearchReward is the fixed point value granted for performing a search.
const SearchReward = 10

// LevelForPoints computes a user's level from their lifetime point total:
// floor(sqrt(points)/5), clamped to a minimum of 1. The stored level is
// only a cache of this formula and is recomputed on every award.
func LevelForPoints(points int) int {
	if points < 0 {
		return 1
	}
	level := int(math.Sqrt(float64(points)) / 5)
	if level < 1 {
		return 1
	}
	return level
}

// AwardResult reports the outcome of a point award.
type AwardResult struct {
	Points   int  `json:"points"`
	Level    int  `json:"level"`
	LevelUp  bool `json:"levelUp"`
	Credited bool `json:"credited"` // false when the user does not exist
}

// Store is the transactional persistence slice the ledger needs.
type Store interface {
	AwardPoints(userID string, amount int, reason string) (AwardResult, error)
}

// Ledger awards points and reports level-ups so callers can trigger a
// celebration in the UI.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, logger: slog.Default()}
}

// Award credits amount points to the user inside a single database
// transaction. A missing user is a logged no-op, not an error.
func (l *Ledger) Award(userID string, amount int, reason string) (AwardResult, error) {
	res, err := l.store.AwardPoints(userID, amount, reason)
	if err != nil {
		return AwardResult{}, err
	}
	if !res.Credited {
		l.logger.Warn("point award skipped: user not found", "user_id", userID, "reason", reason)
		return res, nil
	}
	if res.LevelUp {
		l.logger.Info("user leveled up", "user_id", userID, "level", res.Level)
	}
	return res, nil
}
