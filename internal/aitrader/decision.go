package aitrader

import (
	"strings"

	"hldesk/internal/models"
)

type rawDecision struct {
	Action    string   `json:"action"`
	Asset     string   `json:"asset"`
	SizeUsd   *float64 `json:"sizeUsd"`
	Reasoning string   `json:"reasoning"`
}

// extractDecision finds the first JSON object in the model's response and
// validates it into a rawDecision. Any failure — no JSON object, invalid
// action — downgrades to hold with the extraction failure as the reasoning.
func extractDecision(response string) rawDecision {
	start := strings.Index(response, "{")
	if start < 0 {
		return holdDecision("no JSON object found in model response")
	}
	end := matchingBrace(response, start)
	if end < 0 {
		return holdDecision("unterminated JSON object in model response")
	}

	var d rawDecision
	if err := llmJSON.Unmarshal([]byte(response[start:end+1]), &d); err != nil {
		return holdDecision("malformed JSON in model response: " + err.Error())
	}

	switch models.Action(d.Action) {
	case models.ActionOpenLong, models.ActionOpenShort, models.ActionClose, models.ActionHold:
	default:
		return holdDecision("invalid action in model response: " + d.Action)
	}

	return d
}

func holdDecision(reason string) rawDecision {
	return rawDecision{Action: string(models.ActionHold), Reasoning: reason}
}

// matchingBrace returns the index of the brace matching the one at start,
// accounting for nested objects.
func matchingBrace(s string, start int) int {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
