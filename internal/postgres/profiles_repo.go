package postgres

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/profiles"
)

var _ profiles.Repo = (*ProfileRepo)(nil)

type ProfileRepo struct {
	db  DB
	now func() time.Time
}

func NewProfileRepo(db DB) *ProfileRepo {
	return &ProfileRepo{db: db, now: time.Now}
}

const profileColumns = `id, full_name, phone, company_id, created_at, updated_at`

func (r *ProfileRepo) Create(ctx context.Context, p *profiles.Profile) error {
	now := r.now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.FullName, p.Phone, p.CompanyID, now, now,
	)
	if err != nil {
		return mapErr("ProfileRepo Create", err, nil)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (*profiles.Profile, error) {
	var p profiles.Profile
	err := r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.Phone, &p.CompanyID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr("ProfileRepo Get", err, apperrors.ErrProfileNotFound)
	}
	return &p, nil
}

// LinkCompany upserts so that a profile row missed during sign-up is created here.
func (r *ProfileRepo) LinkCompany(ctx context.Context, id, companyID string) error {
	now := r.now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (id) DO UPDATE SET company_id = EXCLUDED.company_id, updated_at = EXCLUDED.updated_at`,
		id, companyID, now,
	)
	return mapErr("ProfileRepo LinkCompany", err, nil)
}
