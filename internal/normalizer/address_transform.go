package normalizer

import (
	"regexp"
	"strings"

	"github.com/billing-resolver/app/models"
)

// PatternRulePrefix marks a rewrite rule whose search part is a regular
// expression rather than a literal substring.
const PatternRulePrefix = "r"

var whitespaceRegexp = regexp.MustCompile(`\s+`)

type patternRule struct {
	pattern *regexp.Regexp
	replace string
}

type literalRule struct {
	search  string
	replace string
}

// AddressTransform rewrites raw billing addresses with an ordered rule
// set before parsing. Pattern rules run first, literal rules second,
// both in the order they were supplied.
type AddressTransform struct {
	patterns []patternRule
	literals []literalRule
}

func NewAddressTransform() *AddressTransform {
	return &AddressTransform{}
}

// Init compiles the rule set. On any malformed pattern it returns the
// config error and leaves the previously installed rules untouched.
func (t *AddressTransform) Init(rules []models.TransformRule) error {
	var patterns []patternRule
	var literals []literalRule
	for _, rule := range rules {
		if strings.HasPrefix(rule.Search, PatternRulePrefix) {
			expr := strings.TrimPrefix(rule.Search, PatternRulePrefix)
			re, err := regexp.Compile(expr)
			if err != nil {
				return models.NewResolveError(models.ErrorAddressTransformConfigMalformed,
					"invalid transform pattern %q: %v", expr, err)
			}
			patterns = append(patterns, patternRule{pattern: re, replace: rule.Replace})
			continue
		}
		literals = append(literals, literalRule{search: rule.Search, replace: rule.Replace})
	}
	t.patterns = patterns
	t.literals = literals
	return nil
}

// Apply runs every rule over the input and collapses whitespace runs to
// a single space. It never fails; with no rules installed it only trims.
func (t *AddressTransform) Apply(input string) string {
	out := strings.TrimSpace(input)
	for _, rule := range t.patterns {
		out = rule.pattern.ReplaceAllString(strings.TrimSpace(out), rule.replace)
	}
	for _, rule := range t.literals {
		out = strings.ReplaceAll(strings.TrimSpace(out), rule.search, rule.replace)
	}
	out = whitespaceRegexp.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// MergeRules overlays override rules onto stored ones. An override with
// the same search key replaces the stored rule in place, new keys are
// appended in their own order.
func MergeRules(stored, overrides []models.TransformRule) []models.TransformRule {
	merged := make([]models.TransformRule, len(stored))
	copy(merged, stored)
	index := make(map[string]int, len(merged))
	for i, rule := range merged {
		index[rule.Search] = i
	}
	for _, rule := range overrides {
		if i, ok := index[rule.Search]; ok {
			merged[i] = rule
			continue
		}
		index[rule.Search] = len(merged)
		merged = append(merged, rule)
	}
	return merged
}
