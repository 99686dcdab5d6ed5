package matcher

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
	"go.uber.org/zap"

	"github.com/billing-resolver/app/models"
)

var (
	symbolsRegexp    = regexp.MustCompile("[!@#$%^&*)(+=_:\"'`\\[\\]]")
	splittersRegexp  = regexp.MustCompile(`[,;.\s\-/]+`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

// PropertyLister feeds organization properties to the finder in bounded
// chunks so a large portfolio never has to sit in one query result.
type PropertyLister interface {
	ListPropertiesByOrganization(ctx context.Context, organizationID string, chunkSize int, fn func([]models.Property) error) error
}

type indexedProperty struct {
	property models.Property
	tokens   []string
}

// PropertyFinder matches free-text billing addresses against the
// organization's own property portfolio by ordered token overlap.
type PropertyFinder struct {
	logger     *zap.Logger
	properties []indexedProperty
}

func NewPropertyFinder(logger *zap.Logger) *PropertyFinder {
	return &PropertyFinder{logger: logger}
}

// Load tokenizes the organization's properties chunk by chunk.
func (f *PropertyFinder) Load(ctx context.Context, lister PropertyLister, organizationID string, chunkSize int) error {
	f.properties = f.properties[:0]
	return lister.ListPropertiesByOrganization(ctx, organizationID, chunkSize, func(chunk []models.Property) error {
		for _, p := range chunk {
			f.properties = append(f.properties, indexedProperty{
				property: p,
				tokens:   Tokenize(p.Address),
			})
		}
		return nil
	})
}

// Size returns how many properties are loaded.
func (f *PropertyFinder) Size() int {
	return len(f.properties)
}

// Tokenize lowercases, folds dotted letters, strips the punctuation
// class and splits on delimiters. Single-character tokens are
// abbreviation noise ("г", "д") and are dropped.
func Tokenize(address string) []string {
	s := foldMarks(strings.ToLower(address))
	s = symbolsRegexp.ReplaceAllString(s, "")
	s = whitespaceRegexp.ReplaceAllString(s, " ")
	parts := splittersRegexp.Split(s, -1)
	tokens := make([]string, 0, len(parts))
	for _, t := range parts {
		if len([]rune(t)) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// OrderedOverlap walks the target tokens in order and consumes the
// candidate left to right: a candidate token matched once is never
// reused for a later target token.
func OrderedOverlap(target, candidate []string) []string {
	rest := candidate
	var matched []string
	for _, token := range target {
		idx := indexOf(rest, token)
		if idx < 0 {
			continue
		}
		matched = append(matched, token)
		rest = rest[idx+1:]
	}
	return matched
}

func indexOf(tokens []string, token string) int {
	for i, t := range tokens {
		if t == token {
			return i
		}
	}
	return -1
}

// FindBestMatches scans every loaded property once and returns the set
// tied at the best overlap together with the score as a percentage of
// the target token count, rounded to two decimals. More than one
// returned property means the match is ambiguous.
func (f *PropertyFinder) FindBestMatches(targetAddress string) ([]models.Property, float64) {
	targetTokens := Tokenize(targetAddress)
	if len(targetTokens) == 0 {
		return nil, 0
	}
	maxScore := 0
	var best []models.Property
	for _, p := range f.properties {
		score := len(OrderedOverlap(targetTokens, p.tokens))
		if score < maxScore {
			continue
		}
		if score > maxScore {
			maxScore = score
			best = best[:0]
		}
		best = append(best, p.property)
	}
	percent := math.Round(float64(maxScore)/float64(len(targetTokens))*100*100) / 100
	return best, percent
}

// Similarity blends Jaro-Winkler with normalized Levenshtein and keeps
// the more optimistic of the two. Used to break overlap-score ties.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	jw := smetrics.JaroWinkler(a, b, 0.7, 4)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	lev := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if jw > lev {
		return jw
	}
	return lev
}
