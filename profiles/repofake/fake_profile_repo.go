package repofake

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/utils"
	"github.com/jrsteele09/go-tenant-portal/profiles"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

type FakeProfileRepo struct {
	profiles map[string]profiles.Profile
	lock     sync.RWMutex
	now      func() time.Time

	// FailLink makes LinkCompany fail with the given error, to exercise partial registrations.
	FailLink error
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]profiles.Profile),
		now:      time.Now,
	}
}

func (r *FakeProfileRepo) Create(_ context.Context, p *profiles.Profile) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.profiles[p.ID]; exists {
		return apperrors.Wrapf(apperrors.ErrDuplicateIdentity, "profile %s", p.ID)
	}
	now := r.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.profiles[p.ID] = *p
	return nil
}

func (r *FakeProfileRepo) Get(_ context.Context, id string) (*profiles.Profile, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, apperrors.ErrProfileNotFound
	}
	return &p, nil
}

func (r *FakeProfileRepo) LinkCompany(_ context.Context, id, companyID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.FailLink != nil {
		return r.FailLink
	}
	now := r.now()
	p, ok := r.profiles[id]
	if !ok {
		p = profiles.Profile{ID: id, CreatedAt: now}
	}
	p.CompanyID = utils.Ptr(companyID)
	p.UpdatedAt = now
	r.profiles[id] = p
	return nil
}
