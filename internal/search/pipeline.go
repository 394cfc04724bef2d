// Package search implements the query-to-tasks pipeline: validate the
// request, persist a pending log, decompose via the orchestrator,
// normalize dates, persist the resulting tasks, and award points.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dealhunter/dealhunter/internal/fault"
	"github.com/dealhunter/dealhunter/internal/points"
	"github.com/dealhunter/dealhunter/internal/storage"
	"github.com/dealhunter/dealhunter/internal/task"
)

const (
	defaultBudget = 2000
	maxBudget     = 1_000_000
)

// Decomposer turns a free-text query into agent tasks.
type Decomposer interface {
	Decompose(ctx context.Context, query string) ([]task.AgentTask, error)
}

// LogStore is the persistence slice of the pipeline.
type LogStore interface {
	CreateSearchLog(l storage.SearchLog) error
	CompleteSearchLog(logID string, tasks []storage.AgentTaskRow) error
	FailSearchLog(logID, reason string) error
}

// Rewarder awards gamification points.
type Rewarder interface {
	Award(userID string, amount int, reason string) (points.AwardResult, error)
}

// Request is a validated-on-entry search request. A zero Budget gets the
// default trip budget attached during validation.
type Request struct {
	Query  string  `json:"query"`
	UserID string  `json:"user_id"`
	Budget float64 `json:"budget,omitempty"`
}

// TaskView is a persisted agent task as returned to callers.
type TaskView struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Destination  string    `json:"destination"`
	Budget       float64   `json:"budget"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Requirements []string  `json:"requirements"`
}

// Result is the success payload of a performed search.
type Result struct {
	LogID string              `json:"logId"`
	Tasks []TaskView          `json:"tasks"`
	Award *points.AwardResult `json:"award,omitempty"`
}

// Pipeline drives a search from raw query to persisted tasks. The log it
// creates moves PENDING -> COMPLETED or PENDING -> FAILED exactly once;
// there is no partial state and no retry at this layer (the orchestrator
// owns its single retry, pre-persistence).
type Pipeline struct {
	store      LogStore
	decomposer Decomposer
	ledger     Rewarder
	agentModel string
	now        func() time.Time
	logger     *slog.Logger
}

// NewPipeline wires the pipeline. agentModel is the label recorded on
// every search log.
func NewPipeline(store LogStore, decomposer Decomposer, ledger Rewarder, agentModel string) *Pipeline {
	return &Pipeline{
		store:      store,
		decomposer: decomposer,
		ledger:     ledger,
		agentModel: agentModel,
		now:        time.Now,
		logger:     slog.Default(),
	}
}

// NewPipelineWithClock fixes the pipeline clock (used by tests).
func NewPipelineWithClock(store LogStore, decomposer Decomposer, ledger Rewarder, agentModel string, now func() time.Time) *Pipeline {
	p := NewPipeline(store, decomposer, ledger, agentModel)
	p.now = now
	return p
}

// validate shapes the request: non-empty query, budget bounds with a
// default, and an informational month-mention flag.
func validate(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if req.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if req.Budget < 0 || req.Budget > maxBudget {
		return fault.Newf(fault.InvalidRange, "budget %.2f out of range [0, %d]", req.Budget, maxBudget)
	}
	if req.Budget == 0 {
		req.Budget = defaultBudget
	}
	return nil
}

// mentionsMonth is a cheap heuristic used only for diagnostics.
func mentionsMonth(query string) bool {
	q := strings.ToLower(query)
	for _, m := range []string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	} {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// Perform runs the full search pipeline. Any error after the pending log
// was created is recorded as that log's fail reason; if the initial
// insert itself failed, no log update is attempted.
func (p *Pipeline) Perform(ctx context.Context, req Request) (Result, error) {
	if err := validate(&req); err != nil {
		return Result{}, err
	}

	logID := uuid.New().String()
	if err := p.store.CreateSearchLog(storage.SearchLog{
		ID:         logID,
		Query:      req.Query,
		UserID:     req.UserID,
		AgentModel: p.agentModel,
	}); err != nil {
		return Result{}, fmt.Errorf("creating search log: %w", err)
	}

	p.logger.Debug("search started",
		"log_id", logID,
		"user_id", req.UserID,
		"mentions_month", mentionsMonth(req.Query),
	)

	result, err := p.complete(ctx, logID, req)
	if err != nil {
		if failErr := p.store.FailSearchLog(logID, err.Error()); failErr != nil {
			p.logger.Error("failed to mark search log failed", "log_id", logID, "error", failErr)
		}
		return Result{}, err
	}

	// Award outside the completion transaction: a failure here is logged
	// and does not affect search correctness.
	award, awardErr := p.ledger.Award(req.UserID, points.SearchReward, "search_performed")
	if awardErr != nil {
		p.logger.Warn("point award failed after search", "log_id", logID, "error", awardErr)
	} else {
		result.Award = &award
	}

	return result, nil
}

// complete runs decomposition through persistence for an already-created
// pending log.
func (p *Pipeline) complete(ctx context.Context, logID string, req Request) (Result, error) {
	tasks, err := p.decomposer.Decompose(ctx, req.Query)
	if err != nil {
		return Result{}, err
	}
	if len(tasks) == 0 {
		return Result{}, fault.Newf(fault.Hallucination, "decomposition produced no tasks")
	}

	now := p.now()
	rows := make([]storage.AgentTaskRow, len(tasks))
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		start, end := task.ResolveDates(t, now)
		reqsJSON, err := json.Marshal(t.Requirements)
		if err != nil {
			return Result{}, fmt.Errorf("marshaling requirements: %w", err)
		}
		if t.Requirements == nil {
			reqsJSON = []byte("[]")
		}
		row := storage.AgentTaskRow{
			ID:           uuid.New().String(),
			SearchLogID:  logID,
			Type:         t.Type,
			Destination:  t.Destination,
			Budget:       t.Budget,
			StartDate:    start,
			EndDate:      end,
			Requirements: string(reqsJSON),
		}
		rows[i] = row
		views[i] = TaskView{
			ID:           row.ID,
			Type:         row.Type,
			Destination:  row.Destination,
			Budget:       row.Budget,
			StartDate:    start,
			EndDate:      end,
			Requirements: t.Requirements,
		}
	}

	if err := p.store.CompleteSearchLog(logID, rows); err != nil {
		return Result{}, fmt.Errorf("persisting tasks: %w", err)
	}

	return Result{LogID: logID, Tasks: views}, nil
}
