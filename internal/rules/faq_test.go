package rules

import (
	"testing"

	"github.com/greenwayvn/welllabbot/internal/models"
)

func TestMatchFAQFirstEntryWins(t *testing.T) {
	entries := []models.FAQEntry{
		{KeywordsAny: []string{"giao hang", "ship"}, Answer: "shipping"},
		{KeywordsAny: []string{"thanh toan", "ship"}, Answer: "payment"},
	}
	got := MatchFAQ("phi ship bao nhieu", entries)
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.Answer != "shipping" {
		t.Errorf("answer = %q, want shipping (first entry in table order)", got.Answer)
	}
}

func TestMatchFAQNoMatch(t *testing.T) {
	entries := []models.FAQEntry{{KeywordsAny: []string{"giao hang"}, Answer: "x"}}
	if got := MatchFAQ("toi bi mat ngu", entries); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got := MatchFAQ("", entries); got != nil {
		t.Errorf("empty text should not match, got %+v", got)
	}
	if got := MatchFAQ("giao hang", nil); got != nil {
		t.Errorf("empty table should not match, got %+v", got)
	}
}

func TestMatchObjection(t *testing.T) {
	entries := []models.ObjectionEntry{
		{KeywordsAny: []string{"dat qua", "mac qua"}, Answer: "price"},
	}
	if got := MatchObjection("san pham dat qua", entries); got == nil || got.Answer != "price" {
		t.Errorf("got %+v, want the price objection", got)
	}
	if got := MatchObjection("cho xem san pham", entries); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}
