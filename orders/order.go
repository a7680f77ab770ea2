package orders

import (
	"context"
	"time"
)

// Order is a ticket sale belonging to a company. Amounts are in cents.
type Order struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Number       int       `json:"number"`
	CustomerName string    `json:"customer_name"`
	EventID      string    `json:"event_id"`
	EventName    string    `json:"event_name"`
	Quantity     int       `json:"quantity"`
	AmountCents  int64     `json:"amount_cents"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary aggregates the orders of a company over a time window.
type Summary struct {
	Orders       int64 `json:"orders"`
	Tickets      int64 `json:"tickets"`
	RevenueCents int64 `json:"revenue_cents"`
}

// AverageOrderCents is zero when there are no orders.
func (s Summary) AverageOrderCents() int64 {
	if s.Orders == 0 {
		return 0
	}
	return s.RevenueCents / s.Orders
}

type Repo interface {
	Create(ctx context.Context, o *Order) error
	// ListRecent pages through a company's orders, newest first.
	ListRecent(ctx context.Context, companyID string, limit, offset int) ([]*Order, error)
	// Summarize covers orders created in [from, to).
	Summarize(ctx context.Context, companyID string, from, to time.Time) (Summary, error)
}
