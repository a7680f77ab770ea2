package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jrsteele09/go-tenant-portal/companies"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/postgres"
	"github.com/jrsteele09/go-tenant-portal/orders"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestMigrations(t *testing.T) {
	migrations, err := postgres.Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, 1, migrations[0].Version)
	require.Equal(t, "companies_profiles", migrations[0].Name)
	require.Equal(t, 2, migrations[1].Version)
	require.Contains(t, migrations[1].SQL, "CREATE TABLE IF NOT EXISTS orders")
}

func TestMigrateAppliesPending(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS orders").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs(2, "orders").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := postgres.Migrate(context.Background(), mock)
	require.NoError(t, err)
	require.Equal(t, 1, applied)
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").
		WillReturnError(&pgconn.PgError{Code: "42601", Message: "syntax error"})
	mock.ExpectRollback()

	applied, err := postgres.Migrate(context.Background(), mock)
	require.Error(t, err)
	require.Zero(t, applied)
}

func TestProfileRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)

	t.Run("get", func(t *testing.T) {
		mock := newMock(t)
		companyID := "company-1"
		mock.ExpectQuery("SELECT id, full_name, phone, company_id, created_at, updated_at FROM profiles").
			WithArgs("id-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "phone", "company_id", "created_at", "updated_at"}).
				AddRow("id-1", "Ada Lovelace", (*string)(nil), &companyID, now, now))

		p, err := postgres.NewProfileRepo(mock).Get(ctx, "id-1")
		require.NoError(t, err)
		require.Equal(t, "Ada Lovelace", p.FullName)
		require.Nil(t, p.Phone)
		require.True(t, p.RegistrationComplete())
	})

	t.Run("get missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM profiles").
			WithArgs("nope").
			WillReturnRows(pgxmock.NewRows([]string{"id", "full_name", "phone", "company_id", "created_at", "updated_at"}))

		_, err := postgres.NewProfileRepo(mock).Get(ctx, "nope")
		require.ErrorIs(t, err, apperrors.ErrProfileNotFound)
	})

	t.Run("create duplicate", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO profiles").
			WithArgs("id-1", "Ada", (*string)(nil), (*string)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "profiles_pkey"})

		err := postgres.NewProfileRepo(mock).Create(ctx, &profiles.Profile{ID: "id-1", FullName: "Ada"})
		require.ErrorIs(t, err, apperrors.ErrDuplicateIdentity)
	})

	t.Run("link company upserts", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs("id-1", "company-1", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewProfileRepo(mock).LinkCompany(ctx, "id-1", "company-1"))
	})

	t.Run("link timeout is transient", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO profiles").
			WithArgs("id-1", "company-1", pgxmock.AnyArg()).
			WillReturnError(context.DeadlineExceeded)

		err := postgres.NewProfileRepo(mock).LinkCompany(ctx, "id-1", "company-1")
		var transient *apperrors.TransientError
		require.ErrorAs(t, err, &transient)
	})
}

func TestCompanyRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)
	columns := []string{"id", "name", "domain", "tax_id", "owner_id", "associated_at", "created_at"}

	t.Run("create assigns id", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO companies").
			WithArgs(pgxmock.AnyArg(), "Acme", (*string)(nil), (*string)(nil), "owner-1", (*time.Time)(nil), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		c := &companies.Company{Name: "Acme", OwnerID: "owner-1"}
		require.NoError(t, postgres.NewCompanyRepo(mock).Create(ctx, c))
		require.NotEmpty(t, c.ID)
		require.False(t, c.CreatedAt.IsZero())
	})

	t.Run("get by owner", func(t *testing.T) {
		mock := newMock(t)
		domain := "acme.com"
		mock.ExpectQuery("FROM companies WHERE owner_id").
			WithArgs("owner-1").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("c1", "Acme", &domain, (*string)(nil), "owner-1", (*time.Time)(nil), now))

		c, err := postgres.NewCompanyRepo(mock).GetByOwner(ctx, "owner-1")
		require.NoError(t, err)
		require.Equal(t, "c1", c.ID)
		require.Equal(t, "acme.com", *c.Domain)
		require.True(t, c.Pending())
	})

	t.Run("get missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM companies WHERE owner_id").
			WithArgs("nope").
			WillReturnRows(pgxmock.NewRows(columns))

		_, err := postgres.NewCompanyRepo(mock).GetByOwner(ctx, "nope")
		require.ErrorIs(t, err, apperrors.ErrCompanyNotFound)
	})

	t.Run("list pending", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("WHERE associated_at IS NULL").
			WithArgs(now, 50).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("c1", "Acme", (*string)(nil), (*string)(nil), "owner-1", (*time.Time)(nil), now.Add(-time.Hour)).
				AddRow("c2", "Beta", (*string)(nil), (*string)(nil), "owner-2", (*time.Time)(nil), now.Add(-time.Minute)))

		pending, err := postgres.NewCompanyRepo(mock).ListPending(ctx, now, 50)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, "owner-2", pending[1].OwnerID)
	})

	t.Run("mark associated", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("UPDATE companies SET associated_at").
			WithArgs("c1", now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, postgres.NewCompanyRepo(mock).MarkAssociated(ctx, "c1", now))
	})
}

func TestOrderRepo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 9, 10, 0, 0, 0, time.UTC)

	t.Run("list recent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery("FROM orders").
			WithArgs("c1", 5, 0).
			WillReturnRows(pgxmock.NewRows([]string{"id", "company_id", "number", "customer_name", "event_id", "event_name", "quantity", "amount_cents", "created_at"}).
				AddRow("o1", "c1", 3000, "Leslie Alexander", "event-1", "Bear Hug: Live in Concert", 1, int64(8000), now))

		recent, err := postgres.NewOrderRepo(mock).ListRecent(ctx, "c1", 5, 0)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		require.Equal(t, int64(8000), recent[0].AmountCents)
	})

	t.Run("summarize", func(t *testing.T) {
		mock := newMock(t)
		from := now.Add(-7 * 24 * time.Hour)
		mock.ExpectQuery("SELECT count").
			WithArgs("c1", from, now).
			WillReturnRows(pgxmock.NewRows([]string{"count", "tickets", "revenue"}).
				AddRow(int64(4), int64(6), int64(60400)))

		s, err := postgres.NewOrderRepo(mock).Summarize(ctx, "c1", from, now)
		require.NoError(t, err)
		require.Equal(t, orders.Summary{Orders: 4, Tickets: 6, RevenueCents: 60400}, s)
		require.Equal(t, int64(15100), s.AverageOrderCents())
	})

	t.Run("create", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec("INSERT INTO orders").
			WithArgs(pgxmock.AnyArg(), "c1", 3001, "Michael Foster", "event-2", "Six Fingers", 2, int64(29900), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		o := &orders.Order{CompanyID: "c1", Number: 3001, CustomerName: "Michael Foster", EventID: "event-2",
			EventName: "Six Fingers", Quantity: 2, AmountCents: 29900, CreatedAt: now}
		require.NoError(t, postgres.NewOrderRepo(mock).Create(ctx, o))
		require.NotEmpty(t, o.ID)
	})
}
