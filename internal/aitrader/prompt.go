package aitrader

import "fmt"

// personaSystemPrompts holds the four persona-specific system prompt
// fragments keyed by trader name. An unrecognized name falls back to
// genericPersonaPrompt.
var personaSystemPrompts = map[string]string{
	"macro-thesis":                "You trade funding-rate arbitrage from a macro-thesis perspective: weigh open interest trends, cross-venue rate divergence, and broad positioning skew over short-term noise.",
	"momentum-breakout":           "You trade funding-rate arbitrage from a momentum-breakout perspective: favor assets where the primary rate and cross-venue spread are both accelerating in the same direction.",
	"contrarian-mean-reversion":   "You trade funding-rate arbitrage from a contrarian mean-reversion perspective: favor assets whose funding rate has moved to an extreme and is likely to fade back toward zero.",
	"risk-adjusted-conviction":    "You trade funding-rate arbitrage from a risk-adjusted-conviction perspective: size and time entries around spread durability and stop-loss distance, not just raw spread magnitude.",
}

func genericPersonaPrompt() string {
	return "You trade perpetual-futures funding-rate arbitrage across a primary venue and several centralized exchanges, collecting the funding spread while managing price risk."
}

// buildSystemPrompt assembles the full system message: persona framing,
// the decision contract, and the persona's own self-description.
func buildSystemPrompt(traderName, persona string) string {
	framing, ok := personaSystemPrompts[traderName]
	if !ok {
		framing = genericPersonaPrompt()
	}

	return fmt.Sprintf(`%s

Persona: %s

You must respond with a single JSON object and nothing else:
{"action": "open_long" | "open_short" | "close" | "hold", "asset": "<TICKER>", "sizeUsd": <number>, "reasoning": "<one or two sentences>"}

"asset" and "sizeUsd" are required for open_long, open_short, and close; omit them for hold.`, framing, persona)
}

// buildUserPrompt combines the market context and portfolio summary into
// the user message the model reasons over.
func buildUserPrompt(marketContext, portfolioSummary string) string {
	return fmt.Sprintf("Market (top assets by open interest):\n%s\nPortfolio:\n%s\nDecide one action for this cycle.", marketContext, portfolioSummary)
}
