package rules

import (
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// DetectIntent scores every rule's keyword hits against the lowercased
// message. The score is hits*10 + rule priority, so keyword density dominates
// and the configured priority breaks ties between equally-matched rules.
// Ties on the final score keep the earlier rule in table order. Returns the
// empty intent and zero when nothing matches.
func DetectIntent(text string, intents []models.IntentRule) (string, int) {
	msg := strings.ToLower(text)
	if strings.TrimSpace(msg) == "" || len(intents) == 0 {
		return "", 0
	}

	best := ""
	bestScore := 0
	for _, rule := range intents {
		hits := 0
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(msg, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		score := hits*10 + rule.Priority
		if score > bestScore {
			best = rule.Intent
			bestScore = score
		}
	}
	return best, bestScore
}
