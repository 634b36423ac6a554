package rules

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/greenwayvn/welllabbot/internal/models"
)

// File names of the five rule tables inside the data directory.
const (
	IntentRulesFile = "intent_rules.json"
	FAQFile         = "faq.json"
	ObjectionsFile  = "objections.json"
	CombosFile      = "combos.json"
	ProductsFile    = "products.json"
)

// Tables holds the five static rule tables. All slices are read-only after
// load and safe to share across concurrent handlers.
type Tables struct {
	Intents    []models.IntentRule
	FAQ        []models.FAQEntry
	Objections []models.ObjectionEntry
	Combos     []models.Combo
	Products   []models.Product
}

// Load reads every rule table from dir. A missing or malformed table degrades
// to an empty table with a logged warning; every matcher tolerates empty
// tables by returning no match.
func Load(dir string) *Tables {
	t := &Tables{}
	loadTable(dir, IntentRulesFile, &t.Intents)
	loadTable(dir, FAQFile, &t.FAQ)
	loadTable(dir, ObjectionsFile, &t.Objections)
	loadTable(dir, CombosFile, &t.Combos)
	loadTable(dir, ProductsFile, &t.Products)
	slog.Info("rules.Load: rule tables loaded",
		"dir", dir,
		"intents", len(t.Intents),
		"faq", len(t.FAQ),
		"objections", len(t.Objections),
		"combos", len(t.Combos),
		"products", len(t.Products))
	return t
}

func loadTable(dir, name string, out interface{}) {
	path := filepath.Join(dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("rules.loadTable: table missing, using empty table", "file", path, "error", err)
		return
	}
	if err := json.Unmarshal(content, out); err != nil {
		slog.Warn("rules.loadTable: table malformed, using empty table", "file", path, "error", err)
		return
	}
}

// ComboByName returns the combo whose name or alias equals name after
// normalization, or nil.
func (t *Tables) ComboByName(name string) *models.Combo {
	want := Normalize(name)
	if want == "" {
		return nil
	}
	for i := range t.Combos {
		c := &t.Combos[i]
		if Normalize(c.Name) == want {
			return c
		}
		for _, a := range c.Aliases {
			if Normalize(a) == want {
				return c
			}
		}
	}
	return nil
}

// RuleByIntent returns the intent rule with the given intent key, or nil.
func (t *Tables) RuleByIntent(intent string) *models.IntentRule {
	for i := range t.Intents {
		if t.Intents[i].Intent == intent {
			return &t.Intents[i]
		}
	}
	return nil
}
