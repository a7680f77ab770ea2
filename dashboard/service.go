package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/internal/cache"
	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/jrsteele09/go-tenant-portal/internal/utils"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultRecentOrders is how many orders the overview lists.
const DefaultRecentOrders = 5

// Profiles resolves the caller's profile. The session gateway implements it.
type Profiles interface {
	GetProfile(ctx context.Context, identityID string) (*profiles.Profile, error)
}

type Service struct {
	profiles    Profiles
	source      StatsSource
	snapshots   *cache.Query[Snapshot]
	policy      retry.Policy
	recentLimit int
	now         func() time.Time
}

type Option func(*Service)

func WithNowTime(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRecentOrders sets how many orders the overview lists. Non-positive limits keep the default.
func WithRecentOrders(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// NewService caches snapshots in store; a cached snapshot younger than staleTime is served without reloading.
func NewService(profileSource Profiles, source StatsSource, store cache.Store, staleTime time.Duration, opts ...Option) *Service {
	s := &Service{
		profiles:    profileSource,
		source:      source,
		policy:      retry.Default(),
		recentLimit: DefaultRecentOrders,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshots = cache.NewQuery[Snapshot]("dashboard", store, staleTime, cache.WithNowTime[Snapshot](s.now))
	return s
}

func snapshotKey(identityID string, period validation.Period) string {
	return fmt.Sprintf("dashboard:%s:%s", identityID, period)
}

// GetDashboard returns the snapshot for identityID and period.
func (s *Service) GetDashboard(ctx context.Context, identityID string, period validation.Period) (Snapshot, error) {
	if identityID == "" {
		return Snapshot{}, apperrors.ErrUnauthenticated
	}
	if period == "" {
		period = validation.DefaultPeriod
	}
	return s.snapshots.Fetch(ctx, snapshotKey(identityID, period), func(ctx context.Context) (Snapshot, error) {
		return s.load(ctx, identityID, period)
	})
}

func (s *Service) load(ctx context.Context, identityID string, period validation.Period) (Snapshot, error) {
	profile, err := s.profiles.GetProfile(ctx, identityID)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrProfileNotFound) {
			log.Err(err).Str("identity", identityID).Msg("dashboard profile lookup failed")
		}
		return Snapshot{}, apperrors.Wrapf(err, "[Service GetDashboard] loading profile %s", identityID)
	}

	companyID := utils.Value(profile.CompanyID)

	now := s.now()
	snapshot := Snapshot{
		Period:               period,
		DisplayName:          profile.FullName,
		RegistrationComplete: profile.RegistrationComplete(),
		GeneratedAt:          now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := retry.Value(gctx, s.policy, "dashboard.Statistics", func(ctx context.Context) (Statistics, error) {
			return s.source.Statistics(ctx, companyID, period, now)
		})
		snapshot.Stats = stats
		return err
	})
	g.Go(func() error {
		recent, err := retry.Value(gctx, s.policy, "dashboard.RecentOrders", func(ctx context.Context) ([]RecentOrder, error) {
			return s.source.RecentOrders(ctx, companyID, s.recentLimit)
		})
		snapshot.RecentOrders = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, apperrors.Wrapf(err, "[Service GetDashboard] loading statistics")
	}
	return snapshot, nil
}

// Invalidate drops every cached snapshot of identityID.
func (s *Service) Invalidate(ctx context.Context, identityID string) error {
	keys := make([]string, 0, len(validation.Periods))
	for _, p := range validation.Periods {
		keys = append(keys, snapshotKey(identityID, p))
	}
	return s.snapshots.Invalidate(ctx, keys...)
}

// HandleEvent is subscribed to the session gateway: snapshots are dropped when their owner signs out.
func (s *Service) HandleEvent(e gateway.Event) {
	if e.IdentityID == "" {
		return
	}
	switch e.Kind {
	case gateway.SignedOut:
		if err := s.Invalidate(context.Background(), e.IdentityID); err != nil {
			log.Warn().Err(err).Str("identity", e.IdentityID).Msg("could not invalidate dashboard cache")
		}
	}
}
