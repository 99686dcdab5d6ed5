package normalizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/billing-resolver/app/models"
)

func TestAddressTransform_LiteralRules(t *testing.T) {
	tr := NewAddressTransform()
	err := tr.Init([]models.TransformRule{
		{Search: "ул.Революции 1905 года", Replace: "г. Новороссийск, ул.Революции 1905 года"},
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	got := tr.Apply("ул.Революции 1905 года, д.37, кв.1001")
	want := "г. Новороссийск, ул.Революции 1905 года, д.37, кв.1001"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestAddressTransform_PatternRules(t *testing.T) {
	tr := NewAddressTransform()
	err := tr.Init([]models.TransformRule{
		{Search: `r\s*\(мкр\.\s*Никольско-Трубецкое\)`, Replace: ""},
		{Search: "пос.Восточный", Replace: "мкр.Восточный"},
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "pattern rule removes parenthetical",
			input: "ул. Ленина (мкр. Никольско-Трубецкое) д.5",
			want:  "ул. Ленина д.5",
		},
		{
			name:  "literal rule rewrites settlement",
			input: "пос.Восточный, д.1",
			want:  "мкр.Восточный, д.1",
		},
		{
			name:  "whitespace runs collapse",
			input: "  ул.   Ленина    д.5  ",
			want:  "ул. Ленина д.5",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tr.Apply(tc.input); got != tc.want {
				t.Errorf("Apply(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestAddressTransform_Idempotence(t *testing.T) {
	tr := NewAddressTransform()
	if err := tr.Init([]models.TransformRule{{Search: "пос.", Replace: "мкр."}}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	inputs := []string{
		"пос. Восточный, д.1",
		"ул.Щорса,103,212",
		"   много    пробелов   ",
	}
	for _, input := range inputs {
		once := tr.Apply(input)
		twice := tr.Apply(once)
		if once != twice {
			t.Errorf("Apply not idempotent for %q: %q != %q", input, once, twice)
		}
		if strings.Contains(once, "  ") {
			t.Errorf("Apply(%q) = %q contains a double space", input, once)
		}
		if once != strings.TrimSpace(once) {
			t.Errorf("Apply(%q) = %q has edge whitespace", input, once)
		}
	}
}

func TestAddressTransform_MalformedPattern(t *testing.T) {
	tr := NewAddressTransform()
	err := tr.Init([]models.TransformRule{{Search: `r([unclosed`, Replace: ""}})
	if err == nil {
		t.Fatal("expected config error for malformed pattern")
	}
	var rerr *models.ResolveError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResolveError, got %T", err)
	}
	if rerr.Code != models.ErrorAddressTransformConfigMalformed {
		t.Errorf("code = %q, want %q", rerr.Code, models.ErrorAddressTransformConfigMalformed)
	}

	// A rejected configuration must leave the transform usable.
	if got := tr.Apply("  ул. Ленина  "); got != "ул. Ленина" {
		t.Errorf("Apply after failed Init = %q", got)
	}
}

func TestMergeRules(t *testing.T) {
	stored := []models.TransformRule{
		{Search: "a", Replace: "1"},
		{Search: "b", Replace: "2"},
	}
	overrides := []models.TransformRule{
		{Search: "b", Replace: "override"},
		{Search: "c", Replace: "3"},
	}

	merged := MergeRules(stored, overrides)
	want := []models.TransformRule{
		{Search: "a", Replace: "1"},
		{Search: "b", Replace: "override"},
		{Search: "c", Replace: "3"},
	}
	if len(merged) != len(want) {
		t.Fatalf("merged %d rules, want %d", len(merged), len(want))
	}
	for i := range want {
		if merged[i] != want[i] {
			t.Errorf("merged[%d] = %+v, want %+v", i, merged[i], want[i])
		}
	}
}
