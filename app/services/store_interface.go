package services

import (
	"context"

	"github.com/billing-resolver/app/models"
)

// PropertyStore reads the organization's own property portfolio.
type PropertyStore interface {
	// ListPropertiesByOrganization streams non-deleted properties in
	// chunks of at most chunkSize through fn.
	ListPropertiesByOrganization(ctx context.Context, organizationID string, chunkSize int, fn func([]models.Property) error) error
	// PropertyExists reports whether the property id belongs to the
	// organization and is not deleted.
	PropertyExists(ctx context.Context, propertyID, organizationID string) (bool, error)
}

// BillingPropertyStore reads and writes billing properties inside one
// integration context.
type BillingPropertyStore interface {
	// FindFirst runs the OR-of-conditions lookup (addressKey, address,
	// globalId) scoped to the context, returning at most one match.
	// Empty condition values are skipped; all-empty returns nil, nil.
	FindFirst(ctx context.Context, contextID string, cond models.AddressConditionValues) (*models.BillingProperty, error)
	// FindByAddress looks a billing property up by exact address or
	// address key inside the context.
	FindByAddress(ctx context.Context, contextID, address, addressKey string) (*models.BillingProperty, error)
	Create(ctx context.Context, property *models.BillingProperty) (*models.BillingProperty, error)
	// Update patches only the allowlisted fields.
	Update(ctx context.Context, id string, update models.BillingPropertyUpdate) (*models.BillingProperty, error)
}

// SettingsStore reads per-organization resolution settings.
type SettingsStore interface {
	// OrganizationSettings returns stored settings, or zero-value
	// defaults when the organization has none.
	OrganizationSettings(ctx context.Context, organizationID string) (*models.OrganizationSettings, error)
}
