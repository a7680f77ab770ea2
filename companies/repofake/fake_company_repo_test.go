package repofake_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-tenant-portal/companies"
	"github.com/jrsteele09/go-tenant-portal/companies/repofake"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFakeCompanyRepo(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create assigns id and owner lookup", func(t *testing.T) {
		repo := repofake.NewFakeCompanyRepo()
		c := &companies.Company{Name: "Acme", OwnerID: "owner-1"}
		require.NoError(t, repo.Create(ctx, c))
		require.NotEmpty(t, c.ID)
		require.True(t, c.Pending())

		got, err := repo.GetByOwner(ctx, "owner-1")
		require.NoError(t, err)
		require.Equal(t, c.ID, got.ID)

		_, err = repo.GetByOwner(ctx, "owner-2")
		require.ErrorIs(t, err, apperrors.ErrCompanyNotFound)
	})

	t.Run("one company per owner", func(t *testing.T) {
		repo := repofake.NewFakeCompanyRepo()
		require.NoError(t, repo.Create(ctx, &companies.Company{Name: "A", OwnerID: "owner-1"}))
		require.ErrorIs(t, repo.Create(ctx, &companies.Company{Name: "B", OwnerID: "owner-1"}), apperrors.ErrDuplicateIdentity)
	})

	t.Run("pending listing", func(t *testing.T) {
		now := base
		repo := repofake.NewFakeCompanyRepo().WithNowTime(func() time.Time { return now })

		older := &companies.Company{Name: "Older", OwnerID: "o1"}
		require.NoError(t, repo.Create(ctx, older))
		now = base.Add(time.Minute)
		newer := &companies.Company{Name: "Newer", OwnerID: "o2"}
		require.NoError(t, repo.Create(ctx, newer))
		now = base.Add(2 * time.Minute)
		done := &companies.Company{Name: "Done", OwnerID: "o3"}
		require.NoError(t, repo.Create(ctx, done))
		require.NoError(t, repo.MarkAssociated(ctx, done.ID, now))

		pending, err := repo.ListPending(ctx, base.Add(time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		require.Equal(t, older.ID, pending[0].ID)
		require.Equal(t, newer.ID, pending[1].ID)

		pending, err = repo.ListPending(ctx, base.Add(30*time.Second), 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		pending, err = repo.ListPending(ctx, base.Add(time.Hour), 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
	})

	t.Run("mark unknown company", func(t *testing.T) {
		require.ErrorIs(t, repofake.NewFakeCompanyRepo().MarkAssociated(ctx, "nope", base), apperrors.ErrCompanyNotFound)
	})
}
