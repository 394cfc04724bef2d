package advisor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dealhunter/dealhunter/internal/storage"
)

// mockGenerator returns one canned response or error for every call.
// Safe for concurrent use (batch scoring fans out).
type mockGenerator struct {
	response string
	err      error

	mu    sync.Mutex
	calls int
}

func (m *mockGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.response, m.err
}

func testDeal() storage.Deal {
	return storage.Deal{
		ID:            "deal-1",
		Title:         "5 nights in Faro",
		Destination:   "Faro",
		Category:      "hotel",
		Price:         420,
		OriginalPrice: 690,
		Vibe:          "beach",
	}
}

func TestScoreDeal_Success(t *testing.T) {
	mock := &mockGenerator{response: `{"rating":"STEAL","summary":"39% under the usual rate."}`}
	a := New(mock)

	score := a.ScoreDeal(context.Background(), testDeal())
	if score.Rating != RatingSteal {
		t.Errorf("Rating = %q, want STEAL", score.Rating)
	}
	if score.DealID != "deal-1" {
		t.Errorf("DealID = %q", score.DealID)
	}
}

func TestScoreDeal_FencedResponse(t *testing.T) {
	mock := &mockGenerator{response: "```json\n{\"rating\":\"GOOD\",\"summary\":\"solid\"}\n```"}
	a := New(mock)

	if score := a.ScoreDeal(context.Background(), testDeal()); score.Rating != RatingGood {
		t.Errorf("Rating = %q, want GOOD", score.Rating)
	}
}

func TestScoreDeal_ModelFailureFallsBackToAverage(t *testing.T) {
	mock := &mockGenerator{err: fmt.Errorf("model unreachable")}
	a := New(mock)

	score := a.ScoreDeal(context.Background(), testDeal())
	if score.Rating != RatingAverage {
		t.Errorf("Rating = %q, want AVERAGE fallback", score.Rating)
	}
	if score.Summary == "" {
		t.Error("Summary empty, want generic message")
	}
}

func TestScoreDeal_UnknownRatingNormalized(t *testing.T) {
	mock := &mockGenerator{response: `{"rating":"AMAZING","summary":"wow"}`}
	a := New(mock)

	if score := a.ScoreDeal(context.Background(), testDeal()); score.Rating != RatingAverage {
		t.Errorf("Rating = %q, want AVERAGE for unknown label", score.Rating)
	}
}

func TestScoreDeals_BatchPreservesOrder(t *testing.T) {
	mock := &mockGenerator{response: `{"rating":"GOOD","summary":"ok"}`}
	a := New(mock)

	deals := []storage.Deal{
		{ID: "d-1", Title: "a", Destination: "Rome", Price: 100},
		{ID: "d-2", Title: "b", Destination: "Oslo", Price: 200},
		{ID: "d-3", Title: "c", Destination: "Faro", Price: 300},
	}
	scores := a.ScoreDeals(context.Background(), deals)
	if len(scores) != 3 {
		t.Fatalf("len(scores) = %d, want 3", len(scores))
	}
	for i, s := range scores {
		if s.DealID != deals[i].ID {
			t.Errorf("scores[%d].DealID = %q, want %q", i, s.DealID, deals[i].ID)
		}
	}
	if mock.calls != 3 {
		t.Errorf("calls = %d, want 3", mock.calls)
	}
}

func TestPredictPrice_Success(t *testing.T) {
	mock := &mockGenerator{response: `{"signal":"WAIT","confidence":0.7,"message":"Prices usually dip in late September."}`}
	a := New(mock)

	pulse := a.PredictPrice(context.Background(), "Lisbon", 500)
	if pulse.Signal != SignalWait {
		t.Errorf("Signal = %q, want WAIT", pulse.Signal)
	}
	if pulse.Destination != "Lisbon" {
		t.Errorf("Destination = %q", pulse.Destination)
	}
}

func TestPredictPrice_FailureReturnsHold(t *testing.T) {
	mock := &mockGenerator{err: fmt.Errorf("503")}
	a := New(mock)

	pulse := a.PredictPrice(context.Background(), "Lisbon", 500)
	if pulse.Signal != SignalHold {
		t.Errorf("Signal = %q, want HOLD fallback", pulse.Signal)
	}
	if pulse.Message != pulseUnavailableMessage {
		t.Errorf("Message = %q", pulse.Message)
	}
}

func TestPredictPrice_BogusSignalNormalized(t *testing.T) {
	mock := &mockGenerator{response: `{"signal":"PANIC","confidence":3,"message":"!"}`}
	a := New(mock)

	pulse := a.PredictPrice(context.Background(), "Lisbon", 500)
	if pulse.Signal != SignalHold {
		t.Errorf("Signal = %q, want HOLD", pulse.Signal)
	}
	if pulse.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped to 0", pulse.Confidence)
	}
}

func TestGenerateItinerary_Success(t *testing.T) {
	mock := &mockGenerator{response: `[
		{"day":1,"title":"Arrival","activities":["check in","old town walk","dinner by the river"]},
		{"day":2,"title":"Beach day","activities":["surf lesson","seafood lunch","sunset point"]}
	]`}
	a := New(mock)

	it := a.GenerateItinerary(context.Background(), "Lisbon", 2, "beach")
	if it.Fallback {
		t.Fatal("Fallback = true, want generated plan")
	}
	if len(it.Days) != 2 {
		t.Fatalf("len(Days) = %d, want 2", len(it.Days))
	}
	if it.Days[0].Day != 1 || len(it.Days[1].Activities) != 3 {
		t.Errorf("Days = %+v", it.Days)
	}
}

func TestGenerateItinerary_FailureIsEmptyWithFallback(t *testing.T) {
	mock := &mockGenerator{response: "I'd love to help! Here is a plan:"}
	a := New(mock)

	it := a.GenerateItinerary(context.Background(), "Lisbon", 3, "")
	if !it.Fallback {
		t.Error("Fallback = false, want true on unparseable response")
	}
	if len(it.Days) != 0 {
		t.Errorf("Days = %+v, want empty", it.Days)
	}
}

func TestGeneratePackingList_Success(t *testing.T) {
	mock := &mockGenerator{response: `[{"name":"Clothing","items":["swimsuit","hat"]},{"name":"Documents","items":["passport"]}]`}
	a := New(mock)

	list := a.GeneratePackingList(context.Background(), "Faro", 5)
	if list.Fallback {
		t.Fatal("Fallback = true, want generated list")
	}
	if len(list.Categories) != 2 {
		t.Errorf("len(Categories) = %d, want 2", len(list.Categories))
	}
}

func TestGeneratePackingList_FailureState(t *testing.T) {
	mock := &mockGenerator{err: fmt.Errorf("timeout")}
	a := New(mock)

	list := a.GeneratePackingList(context.Background(), "Faro", 5)
	if !list.Fallback {
		t.Error("Fallback = false, want error state payload")
	}
}
