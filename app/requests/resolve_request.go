package requests

import "github.com/billing-resolver/app/models"

// ResolveItem is one address row to resolve.
type ResolveItem struct {
	Address     string                   `json:"address"`
	AddressMeta *models.AddressMetaInput `json:"addressMeta,omitempty"`
	UnitType    models.UnitType          `json:"unitType,omitempty"`
	UnitName    string                   `json:"unitName,omitempty"`
}

// ResolveRequest resolves a batch of address rows belonging to one
// billing upload. All rows share the organization, integration context
// and transform rule overrides, so one resolver session serves them all.
type ResolveRequest struct {
	TIN              string                 `json:"tin" binding:"required"`
	OrganizationID   string                 `json:"organizationId" binding:"required"`
	ContextID        string                 `json:"contextId" binding:"required"`
	AddressTransform []models.TransformRule `json:"addressTransform,omitempty"`
	Items            []ResolveItem          `json:"items" binding:"required,min=1,max=10000"`
}
