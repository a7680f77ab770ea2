package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-portal/orders"
)

var _ orders.Repo = (*FakeOrderRepo)(nil)

type FakeOrderRepo struct {
	orders []orders.Order
	lock   sync.RWMutex
}

func NewFakeOrderRepo() *FakeOrderRepo {
	return &FakeOrderRepo{}
}

func (r *FakeOrderRepo) Create(_ context.Context, o *orders.Order) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	r.orders = append(r.orders, *o)
	return nil
}

func (r *FakeOrderRepo) ListRecent(_ context.Context, companyID string, limit, offset int) ([]*orders.Order, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var matched []*orders.Order
	for _, o := range r.orders {
		if o.CompanyID == companyID {
			o := o
			matched = append(matched, &o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*orders.Order{}, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *FakeOrderRepo) Summarize(_ context.Context, companyID string, from, to time.Time) (orders.Summary, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var s orders.Summary
	for _, o := range r.orders {
		if o.CompanyID != companyID || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		s.Orders++
		s.Tickets += int64(o.Quantity)
		s.RevenueCents += o.AmountCents
	}
	return s, nil
}
