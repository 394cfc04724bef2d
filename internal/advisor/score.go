package advisor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dealhunter/dealhunter/internal/storage"
)

// Deal ratings, best to worst.
const (
	RatingSteal   = "STEAL"
	RatingGood    = "GOOD"
	RatingAverage = "AVERAGE"
	RatingPoor    = "POOR"
)

// scoreConcurrency bounds the batch-scoring fan-out.
const scoreConcurrency = 4

// DealScore is the model's judgement of a single deal.
type DealScore struct {
	DealID  string `json:"dealId"`
	Rating  string `json:"rating"`
	Summary string `json:"summary"`
}

const scoreSystemPrompt = `You are a travel deal analyst. Judge whether the given deal is worth booking. Your output must be ONLY a single JSON object of the shape {"rating": "STEAL" | "GOOD" | "AVERAGE" | "POOR", "summary": string}. The summary is one sentence. No other text, no markdown.`

// ScoreDeal rates one deal. It never fails: any model error or
// unparseable response yields a neutral AVERAGE rating.
func (a *Advisor) ScoreDeal(ctx context.Context, d storage.Deal) DealScore {
	user := fmt.Sprintf("Deal: %s - %s (%s), price %.2f, regular price %.2f, vibe %q.",
		d.Title, d.Destination, d.Category, d.Price, d.OriginalPrice, d.Vibe)

	var score DealScore
	if err := a.generateJSON(ctx, scoreSystemPrompt, user, &score); err != nil {
		a.logger.Warn("deal scoring failed, using neutral rating", "deal_id", d.ID, "error", err)
		return DealScore{DealID: d.ID, Rating: RatingAverage, Summary: "Rating unavailable right now."}
	}
	if !validRating(score.Rating) {
		a.logger.Warn("deal scoring returned unknown rating", "deal_id", d.ID, "rating", score.Rating)
		score.Rating = RatingAverage
	}
	score.DealID = d.ID
	return score
}

// ScoreDeals rates a batch of deals concurrently, preserving input order.
// Individual failures degrade per-deal; the batch itself never fails.
func (a *Advisor) ScoreDeals(ctx context.Context, deals []storage.Deal) []DealScore {
	scores := make([]DealScore, len(deals))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, d := range deals {
		g.Go(func() error {
			scores[i] = a.ScoreDeal(gCtx, d)
			return nil
		})
	}
	g.Wait()

	return scores
}

func validRating(r string) bool {
	switch r {
	case RatingSteal, RatingGood, RatingAverage, RatingPoor:
		return true
	}
	return false
}
