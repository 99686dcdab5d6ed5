package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/billing-resolver/app/models"
)

// FiasPrefix marks an input that carries a well-known house identifier
// instead of a free-text address.
const FiasPrefix = "fiasId:"

// unitVocabulary lists the premises keywords per unit type, in detection
// priority order. The first category whose keyword occurs in the unit
// part wins; flat is the fallback.
var unitVocabulary = []struct {
	unitType models.UnitType
	keywords []string
}{
	{models.UnitTypeParking, []string{
		"автоместо", "парковка", "паркинг", "машиноместо", "гараж",
		"м/м", "мм", "место", "м/место", "а/м", "бокс", "парк",
	}},
	{models.UnitTypeApartment, []string{"апартаменты", "апарт", "ап"}},
	{models.UnitTypeCommercial, []string{"офис", "оф", "помещение", "пом", "комната", "комн"}},
	{models.UnitTypeWarehouse, []string{"кладовая", "кладовка", "склад", "подвал"}},
	{models.UnitTypeFlat, []string{"квартира", "кварт", "кв"}},
}

type unitCategory struct {
	unitType models.UnitType
	pattern  *regexp.Regexp
}

// AddressParser splits one raw address string into a house part and a
// unit part and classifies the unit by its keyword.
type AddressParser struct {
	splitPattern *regexp.Regexp
	categories   []unitCategory
}

func NewAddressParser() *AddressParser {
	var all []string
	categories := make([]unitCategory, 0, len(unitVocabulary))
	for _, cat := range unitVocabulary {
		words := sortLongestFirst(cat.keywords)
		all = append(all, words...)
		categories = append(categories, unitCategory{
			unitType: cat.unitType,
			pattern:  regexp.MustCompile(`(?i)(?:` + alternation(words) + `)\.*`),
		})
	}
	// The house/unit boundary is the last keyword preceded by whitespace
	// and followed by a dot, whitespace or the end of the string.
	split := regexp.MustCompile(`(?i)^(.*\S)\s+((?:` + alternation(sortLongestFirst(all)) + `)(?:[.\s].*)?)$`)
	return &AddressParser{splitPattern: split, categories: categories}
}

func sortLongestFirst(words []string) []string {
	out := make([]string, len(words))
	copy(out, words)
	sort.SliceStable(out, func(i, j int) bool {
		return len([]rune(out[i])) > len([]rune(out[j]))
	})
	return out
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Parse never fails: unsplittable input comes back with the whole string
// as the house part and flat as the unit type.
func (p *AddressParser) Parse(raw string) models.ParsedAddress {
	input := strings.TrimSpace(raw)
	if strings.HasPrefix(input, FiasPrefix) {
		return p.parseFias(raw, input)
	}

	var house, unit string
	if m := p.splitPattern.FindStringSubmatch(input); m != nil {
		house, unit = m[1], m[2]
	} else if fields := strings.Split(input, ","); len(fields) > 1 {
		// No keyword found: treat the last comma field as the unit.
		unit = fields[len(fields)-1]
		trimmed := make([]string, 0, len(fields)-1)
		for _, f := range fields[:len(fields)-1] {
			trimmed = append(trimmed, strings.TrimSpace(f))
		}
		house = strings.Join(trimmed, ", ")
	} else {
		house = input
	}

	unitType, unitName := p.parseUnit(unit)
	return models.ParsedAddress{
		Parsed:        true,
		OriginalInput: raw,
		Address:       trimEdges(house),
		UnitType:      unitType,
		UnitName:      trimEdges(unitName),
	}
}

// parseFias handles "fiasId:<uuid>[, unit...]": the identifier is the
// whole house part and everything after the first comma is the unit.
func (p *AddressParser) parseFias(raw, input string) models.ParsedAddress {
	parts := strings.Split(input, ",")
	unitType, unitName := p.parseUnit(strings.Join(parts[1:], ","))
	return models.ParsedAddress{
		Parsed:        true,
		IsFias:        true,
		OriginalInput: raw,
		Address:       strings.TrimSpace(parts[0]),
		UnitType:      unitType,
		// Identifier-sourced unit names only get whitespace cleanup.
		UnitName: strings.TrimSpace(unitName),
	}
}

// parseUnit classifies the unit text by the first matching category and
// strips every category keyword from the name.
func (p *AddressParser) parseUnit(unit string) (models.UnitType, string) {
	name := strings.ToUpper(strings.TrimSpace(unit))
	var detected models.UnitType
	for _, cat := range p.categories {
		if detected == "" && cat.pattern.MatchString(name) {
			detected = cat.unitType
		}
		name = cat.pattern.ReplaceAllString(name, "")
	}
	if detected == "" {
		detected = models.UnitTypeFlat
	}
	name = strings.TrimSpace(whitespaceRegexp.ReplaceAllString(name, " "))
	return detected, name
}

var whitespaceRegexp = regexp.MustCompile(`\s+`)

func trimEdges(s string) string {
	return strings.Trim(s, " \t\r\n.,")
}
