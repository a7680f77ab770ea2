package dashboard_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-portal/dashboard"
	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/internal/cache"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/orders"
	orderrepofake "github.com/jrsteele09/go-tenant-portal/orders/repofake"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	profilerepofake "github.com/jrsteele09/go-tenant-portal/profiles/repofake"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/stretchr/testify/require"
)

const (
	testIdentity = "identity-1"
	testCompany  = "company-1"
)

type repoProfiles struct {
	repo profiles.Repo
}

func (p repoProfiles) GetProfile(ctx context.Context, id string) (*profiles.Profile, error) {
	return p.repo.Get(ctx, id)
}

type failingProfiles struct {
	err error
}

func (p failingProfiles) GetProfile(context.Context, string) (*profiles.Profile, error) {
	return nil, p.err
}

// countingSource counts loads that reach the statistics source.
type countingSource struct {
	dashboard.DemoSource
	loads atomic.Int32
}

func (c *countingSource) Statistics(ctx context.Context, companyID string, period validation.Period, now time.Time) (dashboard.Statistics, error) {
	c.loads.Add(1)
	return c.DemoSource.Statistics(ctx, companyID, period, now)
}

type testFixture struct {
	profiles *profilerepofake.FakeProfileRepo
	source   *countingSource
	now      time.Time
	service  *dashboard.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		profiles: profilerepofake.NewFakeProfileRepo(),
		source:   &countingSource{},
		now:      time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	companyID := testCompany
	require.NoError(t, f.profiles.Create(context.Background(), &profiles.Profile{ID: testIdentity, FullName: "Ada Lovelace", CompanyID: &companyID}))

	f.service = dashboard.NewService(repoProfiles{f.profiles}, f.source, cache.NewLRUStore(64, 10*time.Minute), 5*time.Minute,
		dashboard.WithNowTime(func() time.Time { return f.now }))
	return f
}

func TestDemoSourceStatistics(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		period    validation.Period
		revenue   int64
		tickets   int64
		pageviews int64
	}{
		{validation.PeriodToday, 520_000, 1178, 164_613},
		{validation.PeriodYesterday, 780_000, 1766, 246_920},
		{validation.PeriodLastWeek, 2_600_000, 5888, 823_067},
		{validation.PeriodLastMonth, 11_700_000, 26_496, 3_703_802},
		{validation.PeriodLastYear, 135_200_000, 306_176, 42_799_484},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			stats, err := dashboard.DemoSource{}.Statistics(ctx, "", tt.period, time.Now())
			require.NoError(t, err)
			require.Equal(t, tt.revenue, stats.TotalRevenueCents)
			require.Equal(t, int64(455), stats.AverageOrderCents)
			require.Equal(t, tt.tickets, stats.TicketsSold)
			require.Equal(t, tt.pageviews, stats.Pageviews)
		})
	}

	require.Equal(t, 1.0, dashboard.Multiplier("fortnight"))
}

func TestDemoSourceRecentOrders(t *testing.T) {
	recent, err := dashboard.DemoSource{}.RecentOrders(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	require.Equal(t, "3000", recent[0].OrderNumber)
	require.Equal(t, "Leslie Alexander", recent[0].CustomerName)
	require.Equal(t, int64(11499), recent[4].AmountCents)
	for i := 1; i < len(recent); i++ {
		require.True(t, recent[i-1].PurchaseDate.After(recent[i].PurchaseDate))
	}

	limited, err := dashboard.DemoSource{}.RecentOrders(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestGetDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an identity", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.GetDashboard(ctx, "", validation.PeriodToday)
		require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("missing profile", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.GetDashboard(ctx, "stranger", validation.PeriodToday)
		require.ErrorIs(t, err, apperrors.ErrProfileNotFound)
	})

	t.Run("profile outage is not a missing profile", func(t *testing.T) {
		f := setupTestFixture(t)
		outage := apperrors.Transient("profiles.Get", errors.New("connection refused"))
		service := dashboard.NewService(failingProfiles{outage}, f.source, cache.NewLRUStore(8, time.Minute), time.Minute)

		_, err := service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.Error(t, err)
		require.NotErrorIs(t, err, apperrors.ErrProfileNotFound)
		var transient *apperrors.TransientError
		require.ErrorAs(t, err, &transient)
	})

	t.Run("recent orders limit", func(t *testing.T) {
		f := setupTestFixture(t)
		service := dashboard.NewService(repoProfiles{f.profiles}, f.source, cache.NewLRUStore(8, time.Minute), time.Minute,
			dashboard.WithRecentOrders(2))
		snapshot, err := service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		require.Len(t, snapshot.RecentOrders, 2)
	})

	t.Run("snapshot", func(t *testing.T) {
		f := setupTestFixture(t)
		snapshot, err := f.service.GetDashboard(ctx, testIdentity, "")
		require.NoError(t, err)
		require.Equal(t, validation.DefaultPeriod, snapshot.Period)
		require.Equal(t, "Ada Lovelace", snapshot.DisplayName)
		require.True(t, snapshot.RegistrationComplete)
		require.Equal(t, int64(2_600_000), snapshot.Stats.TotalRevenueCents)
		require.Len(t, snapshot.RecentOrders, dashboard.DefaultRecentOrders)
	})

	t.Run("cached until stale", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		_, err = f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		require.Equal(t, int32(1), f.source.loads.Load())

		// Periods are cached independently.
		_, err = f.service.GetDashboard(ctx, testIdentity, validation.PeriodLastYear)
		require.NoError(t, err)
		require.Equal(t, int32(2), f.source.loads.Load())

		f.now = f.now.Add(6 * time.Minute)
		_, err = f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		require.Equal(t, int32(3), f.source.loads.Load())
	})

	t.Run("sign out invalidates", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)

		f.service.HandleEvent(gateway.Event{Kind: gateway.SignedIn, IdentityID: testIdentity})
		_, err = f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		require.Equal(t, int32(1), f.source.loads.Load())

		f.service.HandleEvent(gateway.Event{Kind: gateway.SignedOut, IdentityID: testIdentity})
		_, err = f.service.GetDashboard(ctx, testIdentity, validation.PeriodToday)
		require.NoError(t, err)
		require.Equal(t, int32(2), f.source.loads.Load())
	})
}

func TestOrdersSource(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	repo := orderrepofake.NewFakeOrderRepo()
	source := dashboard.NewOrdersSource(repo)

	seed := []orders.Order{
		{CompanyID: testCompany, Number: 3000, CustomerName: "Leslie Alexander", Quantity: 1, AmountCents: 8000, CreatedAt: now.Add(-2 * time.Hour)},
		{CompanyID: testCompany, Number: 3001, CustomerName: "Michael Foster", Quantity: 3, AmountCents: 29900, CreatedAt: now.Add(-30 * time.Hour)},
		{CompanyID: testCompany, Number: 3002, CustomerName: "Dries Vincent", Quantity: 2, AmountCents: 15000, CreatedAt: now.AddDate(0, 0, -20)},
		{CompanyID: "other", Number: 1, Quantity: 9, AmountCents: 99999, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	t.Run("today", func(t *testing.T) {
		stats, err := source.Statistics(ctx, testCompany, validation.PeriodToday, now)
		require.NoError(t, err)
		require.Equal(t, dashboard.Statistics{TotalRevenueCents: 8000, AverageOrderCents: 8000, TicketsSold: 1}, stats)
	})

	t.Run("yesterday", func(t *testing.T) {
		stats, err := source.Statistics(ctx, testCompany, validation.PeriodYesterday, now)
		require.NoError(t, err)
		require.Equal(t, int64(29900), stats.TotalRevenueCents)
		require.Equal(t, int64(3), stats.TicketsSold)
	})

	t.Run("last month", func(t *testing.T) {
		stats, err := source.Statistics(ctx, testCompany, validation.PeriodLastMonth, now)
		require.NoError(t, err)
		require.Equal(t, int64(52900), stats.TotalRevenueCents)
		require.Equal(t, int64(17633), stats.AverageOrderCents)
		require.Zero(t, stats.Pageviews)
	})

	t.Run("recent orders", func(t *testing.T) {
		recent, err := source.RecentOrders(ctx, testCompany, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		require.Equal(t, "3000", recent[0].OrderNumber)
		require.Equal(t, "3001", recent[1].OrderNumber)
	})

	t.Run("no organization yet", func(t *testing.T) {
		stats, err := source.Statistics(ctx, "", validation.PeriodLastYear, now)
		require.NoError(t, err)
		require.Zero(t, stats)
		recent, err := source.RecentOrders(ctx, "", 5)
		require.NoError(t, err)
		require.Empty(t, recent)
	})
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	from, to := dashboard.Window(validation.PeriodToday, now)
	require.Equal(t, midnight, from)
	require.Equal(t, now, to)

	from, to = dashboard.Window(validation.PeriodYesterday, now)
	require.Equal(t, midnight.AddDate(0, 0, -1), from)
	require.Equal(t, midnight, to)

	from, _ = dashboard.Window(validation.PeriodLastWeek, now)
	require.Equal(t, now.AddDate(0, 0, -7), from)
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "R$ 80,00", dashboard.FormatBRL(8000))
	require.Equal(t, "R$ 114,99", dashboard.FormatBRL(11499))
	require.Equal(t, "R$ 26.000,00", dashboard.FormatBRL(2_600_000))
	require.Equal(t, "823.067", dashboard.FormatCount(823_067))
	require.Equal(t, "9 de mai. de 2024", dashboard.FormatDate(time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)))
}
