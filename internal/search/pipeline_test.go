package search

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dealhunter/dealhunter/internal/fault"
	"github.com/dealhunter/dealhunter/internal/points"
	"github.com/dealhunter/dealhunter/internal/storage"
	"github.com/dealhunter/dealhunter/internal/task"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// mockDecomposer returns scripted tasks or an error.
type mockDecomposer struct {
	tasks []task.AgentTask
	err   error
}

func (m *mockDecomposer) Decompose(ctx context.Context, query string) ([]task.AgentTask, error) {
	return m.tasks, m.err
}

func newTestPipeline(t *testing.T, dec Decomposer) (*Pipeline, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.CreateUser(storage.User{ID: "user-1", Name: "Ada"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	ledger := points.NewLedger(store)
	p := NewPipelineWithClock(store, dec, ledger, "gpt-4o-mini", func() time.Time { return testNow })
	return p, store
}

func flexibleTasks() []task.AgentTask {
	return []task.AgentTask{
		{Type: "flight", Destination: "Lisbon", Budget: 800, StartDate: "FLEXIBLE", EndDate: "FLEXIBLE", Requirements: []string{"month:2026-08", "vibe:beach"}},
		{Type: "hotel", Destination: "Lisbon", Budget: 800, StartDate: "FLEXIBLE", EndDate: "FLEXIBLE", Requirements: []string{"month:2026-08"}},
		{Type: "activity", Destination: "Lisbon", Budget: 400, StartDate: "FLEXIBLE", EndDate: "FLEXIBLE", Requirements: nil},
	}
}

func TestPerform_Success(t *testing.T) {
	p, store := newTestPipeline(t, &mockDecomposer{tasks: flexibleTasks()})

	res, err := p.Perform(context.Background(), Request{Query: "beach trip to Lisbon in August", UserID: "user-1"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(res.Tasks))
	}

	log, err := store.GetSearchLog(res.LogID)
	if err != nil {
		t.Fatalf("GetSearchLog: %v", err)
	}
	if log.Status != storage.StatusCompleted {
		t.Errorf("Status = %q, want COMPLETED", log.Status)
	}
	if log.AgentModel != "gpt-4o-mini" {
		t.Errorf("AgentModel = %q", log.AgentModel)
	}

	rows, err := store.GetTasksForLog(res.LogID)
	if err != nil {
		t.Fatalf("GetTasksForLog: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("persisted tasks = %d, want 3", len(rows))
	}

	// Month-flexible task resolved to the August window.
	if !rows[0].StartDate.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartDate = %v, want Aug 1", rows[0].StartDate)
	}
	if !rows[0].EndDate.Equal(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("EndDate = %v, want Aug 31 23:59:59", rows[0].EndDate)
	}
}

func TestPerform_NoMonthTaskGetsDefaultWindow(t *testing.T) {
	p, store := newTestPipeline(t, &mockDecomposer{tasks: flexibleTasks()})

	res, err := p.Perform(context.Background(), Request{Query: "lisbon", UserID: "user-1"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}

	rows, _ := store.GetTasksForLog(res.LogID)
	activity := rows[len(rows)-1]
	for _, r := range rows {
		if r.Type == "activity" {
			activity = r
		}
	}
	if !activity.StartDate.Equal(testNow) {
		t.Errorf("StartDate = %v, want pipeline now", activity.StartDate)
	}
	if !activity.EndDate.Equal(testNow.AddDate(0, 0, 7)) {
		t.Errorf("EndDate = %v, want now+7d", activity.EndDate)
	}
	if activity.Requirements != "[]" {
		t.Errorf("Requirements = %q, want empty JSON array", activity.Requirements)
	}
}

func TestPerform_AwardsPoints(t *testing.T) {
	p, store := newTestPipeline(t, &mockDecomposer{tasks: flexibleTasks()})

	res, err := p.Perform(context.Background(), Request{Query: "lisbon", UserID: "user-1"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if res.Award == nil {
		t.Fatal("Award = nil, want points awarded on success")
	}
	if res.Award.Points != points.SearchReward {
		t.Errorf("Points = %d, want %d", res.Award.Points, points.SearchReward)
	}

	u, _ := store.GetUser("user-1")
	if u.Points != points.SearchReward {
		t.Errorf("persisted points = %d, want %d", u.Points, points.SearchReward)
	}
}

func TestPerform_DecomposeFailureMarksLogFailed(t *testing.T) {
	dec := &mockDecomposer{err: fault.Newf(fault.Hallucination, "parsing model response")}
	p, store := newTestPipeline(t, dec)

	_, err := p.Perform(context.Background(), Request{Query: "lisbon", UserID: "user-1"})
	if err == nil {
		t.Fatal("Perform = nil, want error")
	}
	if !strings.Contains(err.Error(), fault.Hallucination) {
		t.Errorf("error %q does not carry the tag", err.Error())
	}

	logs, _ := store.ListSearchLogs("user-1", 10)
	if len(logs) != 1 {
		t.Fatalf("len(logs) = %d, want 1", len(logs))
	}
	if logs[0].Status != storage.StatusFailed {
		t.Errorf("Status = %q, want FAILED", logs[0].Status)
	}
	if logs[0].FailReason == "" {
		t.Error("FailReason empty, want decompose error message")
	}

	// No points for a failed search.
	u, _ := store.GetUser("user-1")
	if u.Points != 0 {
		t.Errorf("points = %d, want 0", u.Points)
	}
}

func TestPerform_EmptyDecompositionFails(t *testing.T) {
	p, store := newTestPipeline(t, &mockDecomposer{tasks: []task.AgentTask{}})

	_, err := p.Perform(context.Background(), Request{Query: "lisbon", UserID: "user-1"})
	if err == nil {
		t.Fatal("Perform = nil, want error for empty decomposition")
	}

	logs, _ := store.ListSearchLogs("user-1", 10)
	if logs[0].Status != storage.StatusFailed {
		t.Errorf("Status = %q, want FAILED (never COMPLETED without tasks)", logs[0].Status)
	}
}

func TestPerform_ValidationErrors(t *testing.T) {
	p, store := newTestPipeline(t, &mockDecomposer{tasks: flexibleTasks()})

	if _, err := p.Perform(context.Background(), Request{Query: "   ", UserID: "user-1"}); err == nil {
		t.Error("empty query accepted")
	}
	if _, err := p.Perform(context.Background(), Request{Query: "lisbon"}); err == nil {
		t.Error("missing user accepted")
	}
	_, err := p.Perform(context.Background(), Request{Query: "lisbon", UserID: "user-1", Budget: -5})
	if fault.TagOf(err) != fault.InvalidRange {
		t.Errorf("tag = %q, want INVALID_RANGE", fault.TagOf(err))
	}

	// No log rows for requests that never passed validation.
	logs, _ := store.ListSearchLogs("user-1", 10)
	if len(logs) != 0 {
		t.Errorf("len(logs) = %d, want 0", len(logs))
	}
}

func TestValidate_BudgetDefault(t *testing.T) {
	req := Request{Query: "lisbon", UserID: "u"}
	if err := validate(&req); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if req.Budget != defaultBudget {
		t.Errorf("Budget = %v, want default %d", req.Budget, defaultBudget)
	}
}

func TestMentionsMonth(t *testing.T) {
	if !mentionsMonth("trip in August please") {
		t.Error("August not detected")
	}
	if mentionsMonth("cheap beach trip") {
		t.Error("false positive")
	}
}
