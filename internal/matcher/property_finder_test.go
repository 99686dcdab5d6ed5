package matcher

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
)

type sliceLister struct {
	properties []models.Property
	chunks     int
}

func (l *sliceLister) ListPropertiesByOrganization(ctx context.Context, organizationID string, chunkSize int, fn func([]models.Property) error) error {
	for i := 0; i < len(l.properties); i += chunkSize {
		end := i + chunkSize
		if end > len(l.properties) {
			end = len(l.properties)
		}
		l.chunks++
		if err := fn(l.properties[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "drops single-letter abbreviations",
			input: "Краснодарский край, г Новороссийск, К.Маркса 13, Офис 3",
			want:  []string{"краснодарский", "край", "новороссийск", "маркса", "13", "офис"},
		},
		{
			name:  "folds dotted letters",
			input: "п.Малое Васильково, ул.Вишнёвая, уч.10",
			want:  []string{"малое", "васильково", "ул", "вишневая", "уч", "10"},
		},
		{
			name:  "strips punctuation symbols",
			input: `ул. "Ленина" [стр.2]`,
			want:  []string{"ул", "ленина", "стр"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tc.input, got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestOrderedOverlap(t *testing.T) {
	target := []string{"a", "b", "c", "b"}
	candidate := []string{"a", "x", "b", "c"}

	got := OrderedOverlap(target, candidate)
	// The second "b" cannot reuse the already consumed candidate "b".
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("OrderedOverlap = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("overlap[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Out-of-order candidate tokens are not counted once consumed past.
	got = OrderedOverlap([]string{"b", "a"}, []string{"a", "b"})
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("OrderedOverlap out-of-order = %v, want [b]", got)
	}
}

func TestPropertyFinder_FindBestMatches(t *testing.T) {
	logger := zap.NewNop()
	finder := NewPropertyFinder(logger)
	lister := &sliceLister{properties: []models.Property{
		{ID: "p1", Address: "Краснодарский край, г Новороссийск, К.Маркса 13"},
		{ID: "p2", Address: "Краснодарский край, г Сочи, ул. Ленина 5"},
		{ID: "p3", Address: "Московская область, г Балашиха, шоссе Энтузиастов 1"},
	}}
	if err := finder.Load(context.Background(), lister, "org-1", 2); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if lister.chunks != 2 {
		t.Errorf("chunks = %d, want 2", lister.chunks)
	}
	if finder.Size() != 3 {
		t.Fatalf("Size = %d, want 3", finder.Size())
	}

	best, score := finder.FindBestMatches("Краснодарский край, г Новороссийск, К.Маркса 13, Офис 3")
	if len(best) != 1 || best[0].ID != "p1" {
		t.Fatalf("best = %+v, want single p1", best)
	}
	if score != 83.33 {
		t.Errorf("score = %v, want 83.33", score)
	}
}

func TestPropertyFinder_SurfacesTies(t *testing.T) {
	finder := NewPropertyFinder(zap.NewNop())
	lister := &sliceLister{properties: []models.Property{
		{ID: "p1", Address: "ул. Ленина, д.5, корпус 1"},
		{ID: "p2", Address: "ул. Ленина, д.5, корпус 2"},
	}}
	if err := finder.Load(context.Background(), lister, "org-1", 100); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	best, _ := finder.FindBestMatches("ул. Ленина, д.5")
	if len(best) != 2 {
		t.Fatalf("tied set size = %d, want 2", len(best))
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("ленина", "ленина"); got != 1 {
		t.Errorf("identical strings = %v, want 1", got)
	}
	closer := Similarity("ул. Ленина, д.5, корпус 1", "ул. Ленина, д.5, корпус 12")
	farther := Similarity("ул. Ленина, д.5, корпус 1", "пр. Мира, д.7")
	if closer <= farther {
		t.Errorf("similarity ordering broken: %v <= %v", closer, farther)
	}
}
