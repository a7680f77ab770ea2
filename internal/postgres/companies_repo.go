package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-portal/companies"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
)

var _ companies.Repo = (*CompanyRepo)(nil)

type CompanyRepo struct {
	db  DB
	now func() time.Time
}

func NewCompanyRepo(db DB) *CompanyRepo {
	return &CompanyRepo{db: db, now: time.Now}
}

const companyColumns = `id, name, domain, tax_id, owner_id, associated_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*companies.Company, error) {
	var c companies.Company
	if err := row.Scan(&c.ID, &c.Name, &c.Domain, &c.TaxID, &c.OwnerID, &c.AssociatedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepo) Create(ctx context.Context, c *companies.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := r.now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO companies (`+companyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Domain, c.TaxID, c.OwnerID, c.AssociatedAt, now,
	)
	if err != nil {
		return mapErr("CompanyRepo Create", err, nil)
	}
	c.CreatedAt = now
	return nil
}

func (r *CompanyRepo) GetByOwner(ctx context.Context, ownerID string) (*companies.Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE owner_id = $1`, ownerID))
	if err != nil {
		return nil, mapErr("CompanyRepo GetByOwner", err, apperrors.ErrCompanyNotFound)
	}
	return c, nil
}

func (r *CompanyRepo) MarkAssociated(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE companies SET associated_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return mapErr("CompanyRepo MarkAssociated", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCompanyNotFound
	}
	return nil
}

func (r *CompanyRepo) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*companies.Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyColumns+` FROM companies
		WHERE associated_at IS NULL AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, createdBefore.UTC(), limit)
	if err != nil {
		return nil, mapErr("CompanyRepo ListPending", err, nil)
	}
	defer rows.Close()

	var pending []*companies.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, mapErr("CompanyRepo ListPending", err, nil)
		}
		pending = append(pending, c)
	}
	return pending, mapErr("CompanyRepo ListPending", rows.Err(), nil)
}
