package report

import (
	"bytes"
	"testing"

	"github.com/dealhunter/dealhunter/internal/advisor"
)

func TestItineraryPDF(t *testing.T) {
	it := advisor.Itinerary{
		Destination: "Lisbon",
		Days: []advisor.ItineraryDay{
			{Day: 1, Title: "Arrival", Activities: []string{"check in", "old town walk"}},
			{Day: 2, Title: "Beach day", Activities: []string{"surf lesson", "sunset point"}},
		},
	}

	data, err := ItineraryPDF(it)
	if err != nil {
		t.Fatalf("ItineraryPDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not start with PDF header")
	}
}

func TestItineraryPDF_RejectsFallback(t *testing.T) {
	if _, err := ItineraryPDF(advisor.Itinerary{Destination: "Lisbon", Fallback: true}); err == nil {
		t.Error("ItineraryPDF(fallback) = nil, want error")
	}
	if _, err := ItineraryPDF(advisor.Itinerary{Destination: "Lisbon"}); err == nil {
		t.Error("ItineraryPDF(no days) = nil, want error")
	}
}
