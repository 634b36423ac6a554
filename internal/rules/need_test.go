package rules

import (
	"testing"

	"github.com/greenwayvn/welllabbot/internal/models"
)

func TestClassifyNeed(t *testing.T) {
	cases := []struct {
		text string
		want models.Need
	}{
		{"toi bi mat ngu", models.NeedHealth},
		{"dạo này hay mệt mỏi", models.NeedHealth},
		{"cho xem san pham", models.NeedProduct},
		{"combo nao tot", models.NeedProduct},
		{"phi giao hang bao nhieu", models.NeedPolicy},
		{"xin chao moi nguoi", models.NeedOther},
		{"", models.NeedOther},
	}
	for _, c := range cases {
		if got := ClassifyNeed(c.text); got != c.want {
			t.Errorf("ClassifyNeed(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestClassifyNeedHealthWinsOverProduct(t *testing.T) {
	// Both health and product keywords present; health is checked first.
	if got := ClassifyNeed("san pham nao chua mat ngu"); got != models.NeedHealth {
		t.Errorf("got %q, want health (health precedence)", got)
	}
}

func TestExplicitNeed(t *testing.T) {
	cases := []struct {
		text   string
		want   models.Need
		wantOK bool
	}{
		{"cho em hoi ve combo", models.NeedProduct, true},
		{"giao hang the nao", models.NeedPolicy, true},
		{"toi bi huyet ap", models.NeedHealth, true},
		{"hom nay troi dep", models.NeedUnset, false},
	}
	for _, c := range cases {
		got, ok := ExplicitNeed(c.text)
		if got != c.want || ok != c.wantOK {
			t.Errorf("ExplicitNeed(%q) = (%q, %v), want (%q, %v)", c.text, got, ok, c.want, c.wantOK)
		}
	}
}

func TestExplicitNeedProductBeatsHealth(t *testing.T) {
	// Product cues are checked before health cues.
	got, ok := ExplicitNeed("combo nao cho nguoi huyet ap")
	if !ok || got != models.NeedProduct {
		t.Errorf("got (%q, %v), want (product, true)", got, ok)
	}
}
