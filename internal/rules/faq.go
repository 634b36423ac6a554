package rules

import (
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// MatchFAQ returns the first FAQ entry in table order whose keywords_any has a
// substring hit in the message. This is any-of matching, not scored: the first
// match wins. Returns nil when nothing matches or the table is empty.
func MatchFAQ(text string, entries []models.FAQEntry) *models.FAQEntry {
	msg := strings.ToLower(text)
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	for i := range entries {
		if anyKeywordHit(msg, entries[i].KeywordsAny) {
			return &entries[i]
		}
	}
	return nil
}

// MatchObjection returns the first objection entry with any keyword hit, or nil.
func MatchObjection(text string, entries []models.ObjectionEntry) *models.ObjectionEntry {
	msg := strings.ToLower(text)
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	for i := range entries {
		if anyKeywordHit(msg, entries[i].KeywordsAny) {
			return &entries[i]
		}
	}
	return nil
}

func anyKeywordHit(msg string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(msg, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
