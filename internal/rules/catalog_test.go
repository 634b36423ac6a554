package rules

import (
	"testing"

	"github.com/greenwayvn/welllabbot/internal/models"
)

func testCombos() []models.Combo {
	return []models.Combo{
		{
			Name:     "Combo Huyết Áp - Tim Mạch",
			Aliases:  []string{"combo huyet ap"},
			Keywords: []string{"huyết áp", "mỡ máu"},
			Goals:    []string{"ổn định huyết áp"},
		},
		{
			Name:     "Combo Ngủ Ngon - Giảm Stress",
			Keywords: []string{"mất ngủ", "stress"},
			Goals:    []string{"ngủ ngon"},
		},
	}
}

func TestFindComboKeywordHit(t *testing.T) {
	c, score := FindCombo("toi bi huyet ap cao", testCombos())
	if c == nil {
		t.Fatal("expected a combo match")
	}
	if c.Name != "Combo Huyết Áp - Tim Mạch" {
		t.Errorf("combo = %q, want the blood-pressure combo", c.Name)
	}
	// One keyword hit (3) plus name-token overlap (1).
	if score != 4 {
		t.Errorf("score = %d, want 4", score)
	}
}

func TestFindComboGoalHit(t *testing.T) {
	c, score := FindCombo("muon ngu ngon hon", testCombos())
	if c == nil || c.Name != "Combo Ngủ Ngon - Giảm Stress" {
		t.Fatalf("got %+v, want the sleep combo", c)
	}
	// Goal hit (2) plus name-token overlap (1).
	if score != 3 {
		t.Errorf("score = %d, want 3", score)
	}
}

func TestFindComboNoMatch(t *testing.T) {
	if c, score := FindCombo("chuyen thoi tiet", testCombos()); c != nil || score != 0 {
		t.Errorf("got (%+v, %d), want no match", c, score)
	}
	if c, _ := FindCombo("", testCombos()); c != nil {
		t.Errorf("empty query matched %+v", c)
	}
}

func testProducts() []models.Product {
	return []models.Product{
		{Name: "WELLLAB Omega-3 Premium"},
		{Name: "WELLLAB Magnesium B6"},
	}
}

func TestFindProduct(t *testing.T) {
	p, score := FindProduct("cho em hoi omega-3", testProducts())
	if p == nil || p.Name != "WELLLAB Omega-3 Premium" {
		t.Fatalf("got %+v, want Omega-3", p)
	}
	if score == 0 {
		t.Error("score should be positive")
	}
}

func TestFindProductNoMatch(t *testing.T) {
	if p, score := FindProduct("chuyen khac", testProducts()); p != nil || score != 0 {
		t.Errorf("got (%+v, %d), want no match", p, score)
	}
}

func TestChooseCombo(t *testing.T) {
	tables := &Tables{
		Intents: []models.IntentRule{
			{Intent: "blood_pressure", PreferredCombos: []string{"Combo Khong Ton Tai", "Combo Huyết Áp - Tim Mạch"}},
			{Intent: "orphan", PreferredCombos: []string{"Combo Khong Ton Tai"}},
		},
		Combos: testCombos(),
	}

	c := ChooseCombo("blood_pressure", tables)
	if c == nil || c.Name != "Combo Huyết Áp - Tim Mạch" {
		t.Errorf("got %+v, want first existing preferred combo", c)
	}
	if c := ChooseCombo("orphan", tables); c != nil {
		t.Errorf("rule with no surviving combo should yield nil, got %+v", c)
	}
	if c := ChooseCombo("unknown", tables); c != nil {
		t.Errorf("unknown intent should yield nil, got %+v", c)
	}
}

func TestComboByNameAlias(t *testing.T) {
	tables := &Tables{Combos: testCombos()}
	if c := tables.ComboByName("COMBO HUYET AP"); c == nil {
		t.Error("alias lookup should be case- and diacritic-insensitive")
	}
	if c := tables.ComboByName("combo ngu ngon - giam stress"); c == nil {
		t.Error("name lookup should be diacritic-insensitive")
	}
	if c := tables.ComboByName("khong co"); c != nil {
		t.Errorf("unexpected match %+v", c)
	}
}
