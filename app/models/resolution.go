package models

import "fmt"

// UnitType classifies the premises named in a billing address.
type UnitType string

const (
	UnitTypeParking    UnitType = "parking"
	UnitTypeApartment  UnitType = "apartment"
	UnitTypeCommercial UnitType = "commercial"
	UnitTypeWarehouse  UnitType = "warehouse"
	UnitTypeFlat       UnitType = "flat"
)

// Resolution error codes. ErrorAddressNotRecognized is the catch-all:
// any failure without a more specific code is reported under it.
const (
	ErrorAddressNotRecognized            = "ADDRESS_NOT_RECOGNIZED_VALUE"
	ErrorAddressNotResolvedUnitName      = "ADDRESS_NOT_RESOLVED_UNIT_NAME"
	ErrorAddressNotResolvedUnitType      = "ADDRESS_NOT_RESOLVED_UNIT_TYPE"
	ErrorAddressTransformConfigMalformed = "ADDRESS_TRANSFORM_CONFIG_MALFORMED_VALUE"
)

// ResolveError is the tagged error the resolution pipeline travels on.
// Code is one of the Error* constants above.
type ResolveError struct {
	Code    string
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewResolveError builds a tagged resolution error.
func NewResolveError(code, format string, args ...interface{}) *ResolveError {
	return &ResolveError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ParsedAddress is the outcome of splitting one raw address string into
// a house part and a unit part.
type ParsedAddress struct {
	Parsed        bool     `json:"parsed"`
	IsFias        bool     `json:"isFias"`
	OriginalInput string   `json:"originalInput"`
	Address       string   `json:"address"`
	UnitType      UnitType `json:"unitType"`
	UnitName      string   `json:"unitName"`
}

// AddressConditionValues are the lookup keys derived from one parsed
// address, enriched from the normalization cache when it has an answer.
type AddressConditionValues struct {
	Address           string
	AddressKey        string
	NormalizedAddress string
	Fias              string
	OriginalInput     string
}

// AddressMetaInput is the caller-supplied companion data of one resolve
// request row.
type AddressMetaInput struct {
	Fias     string   `json:"fias,omitempty"`
	GlobalID string   `json:"globalId,omitempty"`
	ImportID string   `json:"importId,omitempty"`
	UnitType UnitType `json:"unitType,omitempty"`
	UnitName string   `json:"unitName,omitempty"`
}

// ResolutionResult is the single return shape of Resolve: either a
// billing property with unit parts, or an error code with a message.
// It is never both and never neither.
type ResolutionResult struct {
	BillingProperty *BillingProperty `json:"billingProperty,omitempty"`
	UnitType        UnitType         `json:"unitType,omitempty"`
	UnitName        string           `json:"unitName,omitempty"`
	Error           string           `json:"error,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
}

// Failed reports whether the result carries an error instead of a property.
func (r ResolutionResult) Failed() bool {
	return r.Error != ""
}
