package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-portal/companies"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
)

var _ companies.Repo = (*FakeCompanyRepo)(nil)

type FakeCompanyRepo struct {
	companies map[string]companies.Company
	ownerIds  map[string]string // owner id to company id
	lock      sync.RWMutex
	now       func() time.Time

	// FailCreate makes Create fail with the given error.
	FailCreate error
}

func NewFakeCompanyRepo() *FakeCompanyRepo {
	return &FakeCompanyRepo{
		companies: make(map[string]companies.Company),
		ownerIds:  make(map[string]string),
		now:       time.Now,
	}
}

// WithNowTime overrides the clock used for CreatedAt.
func (r *FakeCompanyRepo) WithNowTime(now func() time.Time) *FakeCompanyRepo {
	r.now = now
	return r
}

func (r *FakeCompanyRepo) Create(_ context.Context, c *companies.Company) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	if _, exists := r.ownerIds[c.OwnerID]; exists {
		return apperrors.Wrapf(apperrors.ErrDuplicateIdentity, "company for owner %s", c.OwnerID)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = r.now()
	r.companies[c.ID] = *c
	r.ownerIds[c.OwnerID] = c.ID
	return nil
}

func (r *FakeCompanyRepo) Get(_ context.Context, id string) (*companies.Company, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	c, ok := r.companies[id]
	if !ok {
		return nil, apperrors.ErrCompanyNotFound
	}
	return &c, nil
}

func (r *FakeCompanyRepo) GetByOwner(ctx context.Context, ownerID string) (*companies.Company, error) {
	r.lock.RLock()
	id, ok := r.ownerIds[ownerID]
	r.lock.RUnlock()
	if !ok {
		return nil, apperrors.ErrCompanyNotFound
	}
	return r.Get(ctx, id)
}

func (r *FakeCompanyRepo) MarkAssociated(_ context.Context, id string, at time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	c, ok := r.companies[id]
	if !ok {
		return apperrors.ErrCompanyNotFound
	}
	c.AssociatedAt = &at
	r.companies[id] = c
	return nil
}

func (r *FakeCompanyRepo) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]*companies.Company, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var pending []*companies.Company
	for _, c := range r.companies {
		if c.Pending() && c.CreatedAt.Before(createdBefore) {
			c := c
			pending = append(pending, &c)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}
