// Package dashboard assembles the post-login overview: headline statistics for a reporting period and the
// organization's most recent orders.
package dashboard

import (
	"time"

	"github.com/jrsteele09/go-tenant-portal/validation"
)

// Statistics are the headline numbers. Money is in cents.
type Statistics struct {
	TotalRevenueCents int64 `json:"totalRevenue"`
	AverageOrderCents int64 `json:"averageOrderValue"`
	TicketsSold       int64 `json:"ticketsSold"`
	Pageviews         int64 `json:"pageviews"`
}

type RecentOrder struct {
	ID           string    `json:"id"`
	OrderNumber  string    `json:"orderNumber"`
	PurchaseDate time.Time `json:"purchaseDate"`
	CustomerName string    `json:"customerName"`
	EventName    string    `json:"eventName"`
	EventID      string    `json:"eventId"`
	AmountCents  int64     `json:"amount"`
}

func (o RecentOrder) Amount() string {
	return FormatBRL(o.AmountCents)
}

func (o RecentOrder) Date() string {
	return FormatDate(o.PurchaseDate)
}

// Snapshot is everything the dashboard page shows for one identity and period.
type Snapshot struct {
	Period               validation.Period `json:"period"`
	Stats                Statistics        `json:"stats"`
	RecentOrders         []RecentOrder     `json:"recentOrders"`
	DisplayName          string            `json:"displayName"`
	RegistrationComplete bool              `json:"registrationComplete"`
	GeneratedAt          time.Time         `json:"generatedAt"`
}
