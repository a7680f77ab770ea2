package registration

import (
	"context"
	"time"

	"github.com/jrsteele09/go-tenant-portal/companies"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/metrics"
	"github.com/jrsteele09/go-tenant-portal/internal/utils"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	"github.com/rs/zerolog/log"
)

const reconcileBatch = 100

// Reconciler finishes organization associations that registration left pending.
type Reconciler struct {
	companies companies.Repo
	profiles  profiles.Repo
	interval  time.Duration
	grace     time.Duration
	now       func() time.Time
}

// NewReconciler checks every interval for companies pending longer than grace. The grace period keeps it
// clear of registrations still in flight.
func NewReconciler(companyRepo companies.Repo, profileRepo profiles.Repo, interval, grace time.Duration) *Reconciler {
	return &Reconciler{
		companies: companyRepo,
		profiles:  profileRepo,
		interval:  interval,
		grace:     grace,
		now:       time.Now,
	}
}

// WithNowTime overrides the reconciler clock.
func (r *Reconciler) WithNowTime(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run reconciles on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.ReconcileOnce(ctx); err != nil {
			log.Err(err).Msg("association reconciliation failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReconcileOnce links every pending company to its owner's profile and returns how many it completed.
// A profile already linked to another company is left alone for support to resolve.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	pending, err := r.companies.ListPending(ctx, r.now().Add(-r.grace), reconcileBatch)
	if err != nil {
		return 0, apperrors.Wrapf(err, "[Reconciler ReconcileOnce] listing pending companies")
	}
	metrics.PendingAssociations.Set(float64(len(pending)))

	fixed := 0
	for _, company := range pending {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		if r.reconcile(ctx, company) {
			fixed++
		}
	}
	if fixed > 0 {
		log.Info().Int("completed", fixed).Int("pending", len(pending)).Msg("reconciled organization associations")
	}
	return fixed, nil
}

func (r *Reconciler) reconcile(ctx context.Context, company *companies.Company) bool {
	logger := log.With().Str("company", company.ID).Str("owner", company.OwnerID).Logger()

	profile, err := r.profiles.Get(ctx, company.OwnerID)
	switch {
	case err != nil && !apperrors.Is(err, apperrors.ErrProfileNotFound):
		logger.Warn().Err(err).Msg("could not load owner profile")
		return false
	case err == nil && profile.RegistrationComplete() && utils.Value(profile.CompanyID) != company.ID:
		logger.Warn().Str("linked", utils.Value(profile.CompanyID)).Msg("owner already linked to another organization")
		return false
	case err != nil || !profile.RegistrationComplete():
		if err := r.profiles.LinkCompany(ctx, company.OwnerID, company.ID); err != nil {
			logger.Warn().Err(err).Msg("could not link owner profile")
			return false
		}
	}

	if err := r.companies.MarkAssociated(ctx, company.ID, r.now()); err != nil {
		logger.Warn().Err(err).Msg("could not mark company associated")
		return false
	}
	return true
}
