package models

import "time"

// BillingProperty is a building inside one billing integration context.
type BillingProperty struct {
	ID                string     `bson:"_id" json:"id"`
	ContextID         string     `bson:"context_id" json:"contextId"`
	PropertyID        string     `bson:"property_id,omitempty" json:"propertyId,omitempty"` // linked organization property, if registered
	Address           string     `bson:"address" json:"address"`
	NormalizedAddress string     `bson:"normalized_address,omitempty" json:"normalizedAddress,omitempty"`
	AddressKey        string     `bson:"address_key,omitempty" json:"addressKey,omitempty"`
	GlobalID          string     `bson:"global_id,omitempty" json:"globalId,omitempty"`
	ImportID          string     `bson:"import_id,omitempty" json:"importId,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updatedAt"`
	DeletedAt         *time.Time `bson:"deleted_at,omitempty" json:"-"`
}

// BillingPropertyUpdate carries the only fields a resolver is allowed to
// patch on an existing billing property.
type BillingPropertyUpdate struct {
	Address           *string
	NormalizedAddress *string
	GlobalID          *string
	ImportID          *string
}

// IsEmpty reports whether the update would change nothing.
func (u BillingPropertyUpdate) IsEmpty() bool {
	return u.Address == nil && u.NormalizedAddress == nil && u.GlobalID == nil && u.ImportID == nil
}

// Property is a building registered by the organization itself.
type Property struct {
	ID             string     `bson:"_id" json:"id"`
	OrganizationID string     `bson:"organization_id" json:"organizationId"`
	Address        string     `bson:"address" json:"address"`
	AddressKey     string     `bson:"address_key,omitempty" json:"addressKey,omitempty"`
	DeletedAt      *time.Time `bson:"deleted_at,omitempty" json:"-"`
}

// TransformRule is one address rewrite rule. A Search key starting with
// "r" holds a regular expression after the prefix, anything else is a
// literal substring.
type TransformRule struct {
	Search  string `bson:"search" json:"search" yaml:"search"`
	Replace string `bson:"replace" json:"replace" yaml:"replace"`
}

// OrganizationSettings holds per-organization resolution tuning stored
// alongside the billing integration.
type OrganizationSettings struct {
	OrganizationID                  string          `bson:"organization_id" json:"organizationId"`
	ResolveByOrganizationProperties bool            `bson:"resolve_by_organization_properties" json:"resolveByOrganizationProperties"`
	AddressTransform                []TransformRule `bson:"address_transform,omitempty" json:"addressTransform,omitempty"`
}
