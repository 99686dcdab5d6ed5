package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterExpr(t *testing.T) {
	assert.Equal(t, "", Filter{}.expr())
	assert.Equal(t, `helpers.tin = "7701234567"`, Filter{"helpers.tin": "7701234567"}.expr())
	assert.Equal(t,
		`a = "1" AND b = "2"`,
		Filter{"b": "2", "a": "1"}.expr(),
		"keys must be ordered for stable cache keys")
}

func TestDecodeHit(t *testing.T) {
	hit := map[string]interface{}{
		"address":       "г. Новороссийск, ул. Революции 1905 года, д. 37",
		"address_key":   "novorossiysk-revolutsii-37",
		"house_fias_id": "b746e6bd-e02e-43a4-acf9-133b0c416c29",
		"address_sources": []interface{}{
			"ул.Революции 1905 года, д.37",
			"Революции 1905 года 37",
		},
	}

	result := decodeHit(hit)
	require.NotNil(t, result)
	assert.Equal(t, "г. Новороссийск, ул. Революции 1905 года, д. 37", result.Address)
	assert.Equal(t, "novorossiysk-revolutsii-37", result.AddressKey)
	assert.Equal(t, "b746e6bd-e02e-43a4-acf9-133b0c416c29", result.HouseFiasID())
	assert.Len(t, result.AddressSources, 2)
}

func TestDecodeHit_Partial(t *testing.T) {
	result := decodeHit(map[string]interface{}{"address_key": "some-key"})
	require.NotNil(t, result)
	assert.Equal(t, "some-key", result.AddressKey)
	assert.Equal(t, "", result.HouseFiasID())
	assert.Empty(t, result.AddressSources)
}

func TestDecodeHit_Garbage(t *testing.T) {
	assert.Nil(t, decodeHit("not a document"))
	assert.Nil(t, decodeHit(map[string]interface{}{"irrelevant": 1}))
}
