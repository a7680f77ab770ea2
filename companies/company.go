package companies

import (
	"context"
	"time"
)

// Company is a customer organization. OwnerID marks the identity the company is being linked to;
// AssociatedAt stays nil until the owner's profile references the company.
type Company struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Domain       *string    `json:"domain,omitempty"`
	TaxID        *string    `json:"tax_id,omitempty"`
	OwnerID      string     `json:"owner_id"`
	AssociatedAt *time.Time `json:"associated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Pending reports whether the owner link has not been confirmed yet.
func (c *Company) Pending() bool {
	return c.AssociatedAt == nil
}

// Repo persists companies. Lookups return ErrCompanyNotFound when nothing matches.
type Repo interface {
	Create(ctx context.Context, c *Company) error
	GetByOwner(ctx context.Context, ownerID string) (*Company, error)
	MarkAssociated(ctx context.Context, id string, at time.Time) error
	// ListPending returns unassociated companies created before the cutoff, oldest first.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*Company, error)
}
