package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-portal/orders"
)

var _ orders.Repo = (*OrderRepo)(nil)

type OrderRepo struct {
	db DB
}

func NewOrderRepo(db DB) *OrderRepo {
	return &OrderRepo{db: db}
}

const orderColumns = `id, company_id, number, customer_name, event_id, event_name, quantity, amount_cents, created_at`

func (r *OrderRepo) Create(ctx context.Context, o *orders.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.CompanyID, o.Number, o.CustomerName, o.EventID, o.EventName, o.Quantity, o.AmountCents, o.CreatedAt,
	)
	return mapErr("OrderRepo Create", err, nil)
}

func (r *OrderRepo) ListRecent(ctx context.Context, companyID string, limit, offset int) ([]*orders.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, mapErr("OrderRepo ListRecent", err, nil)
	}
	defer rows.Close()

	recent := []*orders.Order{}
	for rows.Next() {
		var o orders.Order
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Number, &o.CustomerName, &o.EventID, &o.EventName,
			&o.Quantity, &o.AmountCents, &o.CreatedAt); err != nil {
			return nil, mapErr("OrderRepo ListRecent", err, nil)
		}
		recent = append(recent, &o)
	}
	return recent, mapErr("OrderRepo ListRecent", rows.Err(), nil)
}

func (r *OrderRepo) Summarize(ctx context.Context, companyID string, from, to time.Time) (orders.Summary, error) {
	var s orders.Summary
	err := r.db.QueryRow(ctx, `SELECT count(*), COALESCE(sum(quantity), 0), COALESCE(sum(amount_cents), 0)
		FROM orders
		WHERE company_id = $1 AND created_at >= $2 AND created_at < $3`,
		companyID, from.UTC(), to.UTC(),
	).Scan(&s.Orders, &s.Tickets, &s.RevenueCents)
	if err != nil {
		return orders.Summary{}, mapErr("OrderRepo Summarize", err, nil)
	}
	return s, nil
}
