package profiles

import (
	"context"
	"time"

	"github.com/jrsteele09/go-tenant-portal/internal/utils"
)

// Profile extends a provider identity with portal data. ID equals the identity ID.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone,omitempty"`
	CompanyID *string   `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegistrationComplete holds exactly when the profile is linked to an organization.
func (p *Profile) RegistrationComplete() bool {
	return utils.Value(p.CompanyID) != ""
}

// Repo persists profiles. Get returns ErrProfileNotFound for unknown IDs.
type Repo interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id string) (*Profile, error)
	// LinkCompany sets the profile's organization, creating a bare profile row when none exists.
	// Linking the same company twice is a no-op.
	LinkCompany(ctx context.Context, id, companyID string) error
}
