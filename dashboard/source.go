package dashboard

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/jrsteele09/go-tenant-portal/orders"
	"github.com/jrsteele09/go-tenant-portal/validation"
)

// StatsSource supplies the numbers behind a snapshot. companyID is empty while registration is incomplete.
type StatsSource interface {
	Statistics(ctx context.Context, companyID string, period validation.Period, now time.Time) (Statistics, error)
	RecentOrders(ctx context.Context, companyID string, limit int) ([]RecentOrder, error)
}

var periodMultipliers = map[validation.Period]float64{
	validation.PeriodToday:     0.2,
	validation.PeriodYesterday: 0.3,
	validation.PeriodLastWeek:  1,
	validation.PeriodLastMonth: 4.5,
	validation.PeriodLastYear:  52,
}

// Multiplier scales weekly demo figures to period. Unknown periods count as a week.
func Multiplier(period validation.Period) float64 {
	if m, ok := periodMultipliers[period]; ok {
		return m
	}
	return 1
}

// DemoSource serves fixed showcase data scaled by the period multiplier.
type DemoSource struct{}

var _ StatsSource = DemoSource{}

const (
	demoWeeklyRevenueCents = 2_600_000
	demoAverageOrderCents  = 455
	demoWeeklyTickets      = 5888
	demoWeeklyPageviews    = 823_067
)

func (DemoSource) Statistics(_ context.Context, _ string, period validation.Period, _ time.Time) (Statistics, error) {
	m := Multiplier(period)
	return Statistics{
		TotalRevenueCents: scale(demoWeeklyRevenueCents, m),
		AverageOrderCents: demoAverageOrderCents,
		TicketsSold:       scale(demoWeeklyTickets, m),
		Pageviews:         scale(demoWeeklyPageviews, m),
	}, nil
}

func scale(v int64, m float64) int64 {
	return int64(math.Round(float64(v) * m))
}

var demoOrders = []RecentOrder{
	{ID: "1", OrderNumber: "3000", PurchaseDate: time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC), CustomerName: "Leslie Alexander", EventName: "Bear Hug: Live in Concert", EventID: "event-1", AmountCents: 8000},
	{ID: "2", OrderNumber: "3001", PurchaseDate: time.Date(2024, 5, 5, 14, 30, 0, 0, time.UTC), CustomerName: "Michael Foster", EventName: "Six Fingers — DJ Set", EventID: "event-2", AmountCents: 29900},
	{ID: "3", OrderNumber: "3002", PurchaseDate: time.Date(2024, 4, 28, 9, 15, 0, 0, time.UTC), CustomerName: "Dries Vincent", EventName: "We All Look The Same", EventID: "event-3", AmountCents: 15000},
	{ID: "4", OrderNumber: "3003", PurchaseDate: time.Date(2024, 4, 23, 16, 45, 0, 0, time.UTC), CustomerName: "Lindsay Walton", EventName: "Bear Hug: Live in Concert", EventID: "event-1", AmountCents: 8000},
	{ID: "5", OrderNumber: "3004", PurchaseDate: time.Date(2024, 4, 18, 11, 20, 0, 0, time.UTC), CustomerName: "Courtney Henry", EventName: "Viking People", EventID: "event-4", AmountCents: 11499},
}

func (DemoSource) RecentOrders(_ context.Context, _ string, limit int) ([]RecentOrder, error) {
	n := len(demoOrders)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]RecentOrder(nil), demoOrders[:n]...), nil
}

// OrdersSource aggregates the organization's persisted orders. It has no traffic data, so Pageviews stays zero.
type OrdersSource struct {
	orders orders.Repo
}

var _ StatsSource = (*OrdersSource)(nil)

func NewOrdersSource(repo orders.Repo) *OrdersSource {
	return &OrdersSource{orders: repo}
}

func (s *OrdersSource) Statistics(ctx context.Context, companyID string, period validation.Period, now time.Time) (Statistics, error) {
	if companyID == "" {
		return Statistics{}, nil
	}
	from, to := Window(period, now)
	summary, err := s.orders.Summarize(ctx, companyID, from, to)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		TotalRevenueCents: summary.RevenueCents,
		AverageOrderCents: summary.AverageOrderCents(),
		TicketsSold:       summary.Tickets,
	}, nil
}

func (s *OrdersSource) RecentOrders(ctx context.Context, companyID string, limit int) ([]RecentOrder, error) {
	if companyID == "" {
		return []RecentOrder{}, nil
	}
	recent, err := s.orders.ListRecent(ctx, companyID, limit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]RecentOrder, 0, len(recent))
	for _, o := range recent {
		out = append(out, RecentOrder{
			ID:           o.ID,
			OrderNumber:  strconv.Itoa(o.Number),
			PurchaseDate: o.CreatedAt,
			CustomerName: o.CustomerName,
			EventName:    o.EventName,
			EventID:      o.EventID,
			AmountCents:  o.AmountCents,
		})
	}
	return out, nil
}

// Window returns the half open interval [from, to) a period covers, in now's location.
func Window(period validation.Period, now time.Time) (time.Time, time.Time) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case validation.PeriodToday:
		return startOfDay, now
	case validation.PeriodYesterday:
		return startOfDay.AddDate(0, 0, -1), startOfDay
	case validation.PeriodLastMonth:
		return now.AddDate(0, 0, -30), now
	case validation.PeriodLastYear:
		return now.AddDate(-1, 0, 0), now
	default:
		return now.AddDate(0, 0, -7), now
	}
}
