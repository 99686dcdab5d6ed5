package models

// NormalizationResult is what the external address service answers for
// one raw address: the canonical spelling, a stable key, house metadata
// and every alias spelling it already knows for the same house.
type NormalizationResult struct {
	Address        string       `json:"address"`
	AddressKey     string       `json:"addressKey"`
	AddressMeta    *AddressMeta `json:"addressMeta,omitempty"`
	AddressSources []string     `json:"addressSources,omitempty"`
}

// AddressMeta mirrors the provider payload attached to a normalized address.
type AddressMeta struct {
	Data AddressMetaData `json:"data"`
}

// AddressMetaData holds the provider house attributes the resolver reads.
type AddressMetaData struct {
	HouseFiasID string `json:"house_fias_id,omitempty"`
}

// HouseFiasID is a nil-safe accessor for the provider house identifier.
func (r *NormalizationResult) HouseFiasID() string {
	if r == nil || r.AddressMeta == nil {
		return ""
	}
	return r.AddressMeta.Data.HouseFiasID
}
