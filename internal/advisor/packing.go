package advisor

import (
	"context"
	"fmt"
)

// PackingCategory groups packing items under a label.
type PackingCategory struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// PackingList is a categorized packing checklist. Fallback is set when
// generation failed; the UI renders an error state with a retry.
type PackingList struct {
	Destination string            `json:"destination"`
	Categories  []PackingCategory `json:"categories"`
	Fallback    bool              `json:"fallback,omitempty"`
}

const packingSystemPrompt = `You are a travel packing assistant. Produce a categorized packing list for the given destination and trip length. Your output must be ONLY a raw JSON array of category objects of the shape {"name": string, "items": [string]}. Use categories such as Clothing, Documents, Electronics, Essentials. No other text, no markdown.`

// GeneratePackingList builds a packing checklist. It never fails: any
// model error yields an empty list flagged as fallback.
func (a *Advisor) GeneratePackingList(ctx context.Context, destination string, days int) PackingList {
	if days <= 0 {
		days = 7
	}
	user := fmt.Sprintf("Destination: %s. Trip length: %d days.", destination, days)

	var categories []PackingCategory
	if err := a.generateJSON(ctx, packingSystemPrompt, user, &categories); err != nil {
		a.logger.Warn("packing list generation failed", "destination", destination, "error", err)
		return PackingList{Destination: destination, Fallback: true}
	}
	if len(categories) == 0 {
		return PackingList{Destination: destination, Fallback: true}
	}
	return PackingList{Destination: destination, Categories: categories}
}
