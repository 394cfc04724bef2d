package task

import "strings"

// FlexibleDate is the sentinel the planner model emits when a task has no
// fixed date and the dates should be derived from a month hint instead.
const FlexibleDate = "FLEXIBLE"

// Task types emitted by the planner model.
const (
	TypeFlight   = "flight"
	TypeHotel    = "hotel"
	TypeActivity = "activity"
)

// Requirement tag prefixes that carry machine meaning by convention.
const (
	monthTagPrefix = "month:"
	vibeTagPrefix  = "vibe:"
)

// AgentTask is one decomposed sub-task of a travel search, exactly as the
// planner model returns it. StartDate and EndDate are either ISO date
// strings or the FLEXIBLE sentinel; fields are trusted verbatim from the
// model and only resolved during normalization.
type AgentTask struct {
	Type         string   `json:"type"`
	Destination  string   `json:"destination"`
	Budget       float64  `json:"budget"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Requirements []string `json:"requirements"`
}

// MonthHint returns the YYYY-MM value of a month: requirement tag, or ""
// if the task carries none. The first matching tag wins.
func (t AgentTask) MonthHint() string {
	for _, r := range t.Requirements {
		if rest, ok := strings.CutPrefix(r, monthTagPrefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// Vibe returns the value of a vibe: requirement tag, or "" if absent.
func (t AgentTask) Vibe() string {
	for _, r := range t.Requirements {
		if rest, ok := strings.CutPrefix(r, vibeTagPrefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
