package rules

import (
	"strings"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// Per-table scoring weights for the combo search: named-entity keywords are
// worth the most, goal keywords less, and plain name-token overlap the least.
const (
	comboKeywordWeight = 3
	comboGoalWeight    = 2
	comboNameWeight    = 1
)

// FindCombo scores every combo against the normalized query and returns the
// best match with its score, or nil and zero when nothing scores above zero.
// Ties keep the first combo in table order.
func FindCombo(query string, combos []models.Combo) (*models.Combo, int) {
	q := Normalize(query)
	if q == "" || len(combos) == 0 {
		return nil, 0
	}

	var best *models.Combo
	bestScore := 0
	for i := range combos {
		c := &combos[i]
		score := 0
		for _, kw := range c.Keywords {
			if n := Normalize(kw); n != "" && strings.Contains(q, n) {
				score += comboKeywordWeight
			}
		}
		for _, g := range c.Goals {
			if n := Normalize(g); n != "" && strings.Contains(q, n) {
				score += comboGoalWeight
			}
		}
		if nameTokenOverlap(q, c.Name, c.Aliases) > 0 {
			score += comboNameWeight
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

// FindProduct returns the product whose normalized name shares the most query
// tokens, with the overlap count as score. Ties keep the first product in
// table order; zero overlap means no match.
func FindProduct(query string, products []models.Product) (*models.Product, int) {
	q := Normalize(query)
	if q == "" || len(products) == 0 {
		return nil, 0
	}

	var best *models.Product
	bestScore := 0
	for i := range products {
		p := &products[i]
		score := nameTokenOverlap(q, p.Name, nil)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	return best, bestScore
}

// ChooseCombo looks up the rule for intent and returns the first combo in its
// ordered preferred list that exists in the catalog. First match wins; a rule
// with no surviving combo yields nil, and the caller must state explicitly
// that no bundle was identified.
func ChooseCombo(intent string, t *Tables) *models.Combo {
	rule := t.RuleByIntent(intent)
	if rule == nil {
		return nil
	}
	for _, name := range rule.PreferredCombos {
		if c := t.ComboByName(name); c != nil {
			return c
		}
	}
	return nil
}

// nameTokenOverlap counts how many tokens of the normalized query appear as
// substrings in the normalized name plus aliases. Tokens shorter than three
// characters are skipped: particles like "em" or "ai" would otherwise match
// inside almost any product name.
func nameTokenOverlap(normalizedQuery, name string, aliases []string) int {
	haystack := Normalize(name)
	for _, a := range aliases {
		haystack += " " + Normalize(a)
	}
	if haystack == "" {
		return 0
	}
	count := 0
	for _, tok := range strings.Fields(normalizedQuery) {
		if len(tok) < 3 {
			continue
		}
		if strings.Contains(haystack, tok) {
			count++
		}
	}
	return count
}
