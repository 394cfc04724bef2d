package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SearchLog statuses. A log is created PENDING and transitions exactly
// once, to COMPLETED or FAILED; it is never revisited after that.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type SearchLog struct {
	ID         string
	Query      string
	UserID     string
	Status     string
	AgentModel string
	FailReason string // empty unless Status == FAILED
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AgentTaskRow is a persisted, date-resolved agent task attached to a
// completed search log. Rows are written once, in a single batch, and
// never mutated.
type AgentTaskRow struct {
	ID           string
	SearchLogID  string
	Type         string
	Destination  string
	Budget       float64
	StartDate    time.Time
	EndDate      time.Time
	Requirements string // JSON array stored as text
	CreatedAt    time.Time
}

type User struct {
	ID        string
	Name      string
	Points    int
	Level     int
	CreatedAt time.Time
}

// PointTransaction is one row of the append-only gamification audit log.
type PointTransaction struct {
	ID        string
	UserID    string
	Amount    int
	Reason    string
	CreatedAt time.Time
}

type Deal struct {
	ID            string
	Title         string
	Destination   string
	Category      string
	Price         float64
	OriginalPrice float64
	Vibe          string
	Active        bool
	ExpiresAt     time.Time // zero means never expires
	CreatedAt     time.Time
}
