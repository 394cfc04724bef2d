package advisor

import (
	"context"
	"fmt"
)

// Price signals.
const (
	SignalBuy  = "BUY"
	SignalWait = "WAIT"
	SignalHold = "HOLD"
)

// pulseUnavailableMessage is shown when the prediction could not be made.
const pulseUnavailableMessage = "Unable to sync with market pulse. Check back soon."

// PricePulse is a buy-now-or-wait prediction for a destination.
type PricePulse struct {
	Destination string  `json:"destination"`
	Signal      string  `json:"signal"`
	Confidence  float64 `json:"confidence"`
	Message     string  `json:"message"`
}

const pulseSystemPrompt = `You are a travel price analyst. Given a destination and the traveler's target price, predict whether prices are likely to drop. Your output must be ONLY a single JSON object of the shape {"signal": "BUY" | "WAIT", "confidence": number between 0 and 1, "message": string}. The message is one sentence of advice. No other text, no markdown.`

// PredictPrice returns a BUY/WAIT signal for the destination. It never
// fails: on any model error it returns a neutral HOLD pulse with a
// generic message.
func (a *Advisor) PredictPrice(ctx context.Context, destination string, targetPrice float64) PricePulse {
	user := fmt.Sprintf("Destination: %s. Target price: %.2f.", destination, targetPrice)

	var pulse PricePulse
	if err := a.generateJSON(ctx, pulseSystemPrompt, user, &pulse); err != nil {
		a.logger.Warn("price pulse failed, returning neutral signal", "destination", destination, "error", err)
		return PricePulse{Destination: destination, Signal: SignalHold, Message: pulseUnavailableMessage}
	}
	if pulse.Signal != SignalBuy && pulse.Signal != SignalWait {
		pulse.Signal = SignalHold
	}
	if pulse.Confidence < 0 || pulse.Confidence > 1 {
		pulse.Confidence = 0
	}
	pulse.Destination = destination
	return pulse
}
