package advisor

import (
	"context"
	"fmt"
)

// ItineraryDay is one day of a generated plan.
type ItineraryDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

// Itinerary is a day-by-day trip plan. Fallback is set when generation
// failed and the UI should offer a retry instead of rendering days.
type Itinerary struct {
	Destination string         `json:"destination"`
	Days        []ItineraryDay `json:"days"`
	Fallback    bool           `json:"fallback,omitempty"`
}

const itinerarySystemPrompt = `You are a travel itinerary planner. Produce a day-by-day plan for the given destination, length, and vibe. Your output must be ONLY a raw JSON array of day objects of the shape {"day": number, "title": string, "activities": [string]}, one per day, days numbered from 1. Three to five activities per day. No other text, no markdown.`

// GenerateItinerary builds a day-by-day plan. It never fails: any model
// error yields an empty itinerary flagged as fallback.
func (a *Advisor) GenerateItinerary(ctx context.Context, destination string, days int, vibe string) Itinerary {
	if days <= 0 {
		days = 3
	}
	user := fmt.Sprintf("Destination: %s. Trip length: %d days. Vibe: %s.", destination, days, vibe)

	var plan []ItineraryDay
	if err := a.generateJSON(ctx, itinerarySystemPrompt, user, &plan); err != nil {
		a.logger.Warn("itinerary generation failed", "destination", destination, "error", err)
		return Itinerary{Destination: destination, Fallback: true}
	}
	if len(plan) == 0 {
		return Itinerary{Destination: destination, Fallback: true}
	}
	return Itinerary{Destination: destination, Days: plan}
}
