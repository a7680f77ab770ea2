package repofake_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-portal/orders"
	"github.com/jrsteele09/go-tenant-portal/orders/repofake"
	"github.com/stretchr/testify/require"
)

func TestFakeOrderRepo(t *testing.T) {
	ctx := context.Background()
	repo := repofake.NewFakeOrderRepo()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &orders.Order{
			CompanyID:   "c1",
			Number:      3000 + i,
			Quantity:    2,
			AmountCents: 1000,
			CreatedAt:   base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}
	require.NoError(t, repo.Create(ctx, &orders.Order{CompanyID: "c2", Number: 1, Quantity: 1, AmountCents: 99, CreatedAt: base}))

	t.Run("recent newest first", func(t *testing.T) {
		recent, err := repo.ListRecent(ctx, "c1", 3, 0)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		require.Equal(t, 3004, recent[0].Number)
		require.Equal(t, 3002, recent[2].Number)

		page, err := repo.ListRecent(ctx, "c1", 3, 3)
		require.NoError(t, err)
		require.Len(t, page, 2)

		empty, err := repo.ListRecent(ctx, "c1", 3, 10)
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("summary window is half open", func(t *testing.T) {
		s, err := repo.Summarize(ctx, "c1", base, base.Add(2*24*time.Hour))
		require.NoError(t, err)
		require.Equal(t, orders.Summary{Orders: 2, Tickets: 4, RevenueCents: 2000}, s)
		require.Equal(t, int64(1000), s.AverageOrderCents())
	})

	t.Run("empty summary", func(t *testing.T) {
		s, err := repo.Summarize(ctx, "c3", base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Zero(t, s.AverageOrderCents())
	})
}
