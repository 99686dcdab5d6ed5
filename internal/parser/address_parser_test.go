package parser

import (
	"testing"

	"github.com/billing-resolver/app/models"
)

func TestAddressParser_FreeText(t *testing.T) {
	p := NewAddressParser()

	testCases := []struct {
		name     string
		input    string
		address  string
		unitType models.UnitType
		unitName string
	}{
		{
			name:     "parking keyword with parenthetical",
			input:    "пер.Малый Козихинский, д.7, м/м 3,4 (1 ур.)",
			address:  "пер.Малый Козихинский, д.7",
			unitType: models.UnitTypeParking,
			unitName: "3,4 (1 УР.)",
		},
		{
			name:     "comma fallback without keyword",
			input:    "ул.Щорса,103,212",
			address:  "ул.Щорса, 103",
			unitType: models.UnitTypeFlat,
			unitName: "212",
		},
		{
			name:     "flat keyword",
			input:    "г. Новороссийск, ул.Революции 1905 года, д.37, кв.1001",
			address:  "г. Новороссийск, ул.Революции 1905 года, д.37",
			unitType: models.UnitTypeFlat,
			unitName: "1001",
		},
		{
			name:     "trailing bare letter survives",
			input:    "д. 11 кв. 410 к.",
			address:  "д. 11",
			unitType: models.UnitTypeFlat,
			unitName: "410 К",
		},
		{
			name:     "warehouse keyword",
			input:    "ул. Ленина, д.3, кладовая 17",
			address:  "ул. Ленина, д.3",
			unitType: models.UnitTypeWarehouse,
			unitName: "17",
		},
		{
			name:     "commercial keyword",
			input:    "пр. Мира, д.10, офис 3 (19Б 14)",
			address:  "пр. Мира, д.10",
			unitType: models.UnitTypeCommercial,
			unitName: "3 (19Б 14)",
		},
		{
			name:     "apartment keyword",
			input:    "наб. Фонтанки, д.2, апарт. 5",
			address:  "наб. Фонтанки, д.2",
			unitType: models.UnitTypeApartment,
			unitName: "5",
		},
		{
			name:     "no commas and no keyword",
			input:    "д.5",
			address:  "д.5",
			unitType: models.UnitTypeFlat,
			unitName: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Parse(tc.input)
			if !got.Parsed || got.IsFias {
				t.Fatalf("Parse(%q) flags = %+v", tc.input, got)
			}
			if got.Address != tc.address {
				t.Errorf("address = %q, want %q", got.Address, tc.address)
			}
			if got.UnitType != tc.unitType {
				t.Errorf("unitType = %q, want %q", got.UnitType, tc.unitType)
			}
			if got.UnitName != tc.unitName {
				t.Errorf("unitName = %q, want %q", got.UnitName, tc.unitName)
			}
		})
	}
}

func TestAddressParser_Fias(t *testing.T) {
	p := NewAddressParser()
	const uuid = "b746e6bd-e02e-43a4-acf9-133b0c416c29"

	t.Run("identifier only", func(t *testing.T) {
		got := p.Parse(FiasPrefix + uuid)
		if !got.IsFias || !got.Parsed {
			t.Fatalf("flags = %+v", got)
		}
		if got.Address != FiasPrefix+uuid {
			t.Errorf("address = %q", got.Address)
		}
		if got.UnitType != models.UnitTypeFlat || got.UnitName != "" {
			t.Errorf("unit = %q %q, want flat \"\"", got.UnitType, got.UnitName)
		}
	})

	t.Run("identifier with unit tail", func(t *testing.T) {
		got := p.Parse(FiasPrefix + uuid + ", кв. 1")
		if got.Address != FiasPrefix+uuid {
			t.Errorf("address = %q", got.Address)
		}
		if got.UnitType != models.UnitTypeFlat || got.UnitName != "1" {
			t.Errorf("unit = %q %q, want flat \"1\"", got.UnitType, got.UnitName)
		}
	})
}

func TestAddressParser_KeywordPriority(t *testing.T) {
	p := NewAddressParser()

	// The unit text contains both a parking and a flat keyword; parking
	// is detected first and both are stripped from the name.
	got := p.Parse(FiasPrefix + "b746e6bd-e02e-43a4-acf9-133b0c416c29, м/м кв 7")
	if got.UnitType != models.UnitTypeParking {
		t.Errorf("unitType = %q, want parking", got.UnitType)
	}
	if got.UnitName != "7" {
		t.Errorf("unitName = %q, want \"7\"", got.UnitName)
	}
}
