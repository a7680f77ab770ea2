package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-tenant-portal/companies"
	companyrepofake "github.com/jrsteele09/go-tenant-portal/companies/repofake"
	"github.com/jrsteele09/go-tenant-portal/dashboard"
	"github.com/jrsteele09/go-tenant-portal/gateway"
	"github.com/jrsteele09/go-tenant-portal/identity"
	"github.com/jrsteele09/go-tenant-portal/identity/kratosprovider"
	"github.com/jrsteele09/go-tenant-portal/identity/localprovider"
	"github.com/jrsteele09/go-tenant-portal/internal/cache"
	"github.com/jrsteele09/go-tenant-portal/internal/config"
	"github.com/jrsteele09/go-tenant-portal/internal/mailer"
	"github.com/jrsteele09/go-tenant-portal/internal/postgres"
	"github.com/jrsteele09/go-tenant-portal/internal/retry"
	"github.com/jrsteele09/go-tenant-portal/orders"
	orderrepofake "github.com/jrsteele09/go-tenant-portal/orders/repofake"
	"github.com/jrsteele09/go-tenant-portal/profiles"
	profilerepofake "github.com/jrsteele09/go-tenant-portal/profiles/repofake"
	"github.com/jrsteele09/go-tenant-portal/registration"
	"github.com/jrsteele09/go-tenant-portal/server"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "portal:"

type stores struct {
	profiles  profiles.Repo
	companies companies.Repo
	orders    orders.Repo
}

// app is the wired portal: every service built from one Config.
type app struct {
	server     *server.Server
	reconciler *registration.Reconciler
	closers    []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	checks := map[string]server.HealthCheck{}

	st, err := a.openStores(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}
	store, err := a.openCache(cfg, checks)
	if err != nil {
		return nil, err
	}

	policy := retry.Default()
	policy.Attempts = cfg.GetProviderAttempts()
	policy.Timeout = cfg.GetProviderTimeout()

	gw := gateway.New(newProvider(cfg), st.profiles, cfg.GetBaseURL(),
		gateway.WithRetryPolicy(policy),
		gateway.WithSessionCache(cfg.GetCacheSize(), cfg.GetSessionCacheTTL()))
	checks["identity"] = gw.Ping

	var source dashboard.StatsSource = dashboard.DemoSource{}
	if cfg.GetDashboardStats() == config.DashboardStatsOrders {
		source = dashboard.NewOrdersSource(st.orders)
	}
	dash := dashboard.NewService(gw, source, store, cfg.GetCacheStaleTime(),
		dashboard.WithRetryPolicy(policy),
		dashboard.WithRecentOrders(cfg.GetDashboardRecentOrders()))
	gw.Subscribe(dash.HandleEvent)

	validator := validation.New()
	a.server, err = server.New(cfg, server.Services{
		Gateway:      gw,
		Registration: registration.NewWorkflow(gw, st.profiles, st.companies, validator, registration.WithRetryPolicy(policy)),
		Dashboard:    dash,
		Validator:    validator,
		StateCodec:   registration.NewStateCodec(cfg.GetFormStateKey(), cfg.GetFormStateTTL()),
		HealthChecks: checks,
	})
	if err != nil {
		return nil, fmt.Errorf("[main newApp] creating server: %w", err)
	}
	a.closers = append(a.closers, a.server.Close)
	a.reconciler = registration.NewReconciler(st.companies, st.profiles, cfg.GetReconcileInterval(), cfg.GetReconcileGrace())
	return a, nil
}

// openStores connects to Postgres when DATABASE_URL is set and falls back to in-memory repositories.
func (a *app) openStores(ctx context.Context, cfg config.Config, checks map[string]server.HealthCheck) (stores, error) {
	if cfg.GetDatabaseURL() == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory repositories")
		return stores{
			profiles:  profilerepofake.NewFakeProfileRepo(),
			companies: companyrepofake.NewFakeCompanyRepo(),
			orders:    orderrepofake.NewFakeOrderRepo(),
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.GetDatabaseURL(), int(cfg.GetDatabaseMaxConns()))
	if err != nil {
		return stores{}, err
	}
	a.closers = append(a.closers, pool.Close)
	checks["database"] = pool.Ping
	return stores{
		profiles:  postgres.NewProfileRepo(pool),
		companies: postgres.NewCompanyRepo(pool),
		orders:    postgres.NewOrderRepo(pool),
	}, nil
}

func (a *app) openCache(cfg config.Config, checks map[string]server.HealthCheck) (cache.Store, error) {
	if cfg.GetRedisURL() == "" {
		return cache.NewLRUStore(cfg.GetCacheSize(), cfg.GetCacheEvictTime()), nil
	}
	store, err := cache.NewRedisStore(cfg.GetRedisURL(), redisKeyPrefix, cfg.GetCacheEvictTime())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("closing redis")
		}
	})
	checks["cache"] = store.Ping
	return store, nil
}

func newProvider(cfg config.Config) identity.Provider {
	if cfg.GetIdentityProvider() == config.IdentityProviderKratos {
		log.Info().Str("public", cfg.GetKratosPublicURL()).Msg("using Ory Kratos identity provider")
		return kratosprovider.New(cfg.GetKratosPublicURL(), cfg.GetKratosAdminURL(), cfg.GetProviderTimeout())
	}
	log.Info().Msg("using local identity provider")
	return localprovider.New(cfg.GetLocalSigningKey(),
		localprovider.WithMailer(newMailer(cfg)),
		localprovider.WithSessionLifetime(cfg.GetLocalSessionLifetime()),
		localprovider.WithEmailConfirmation(cfg.GetLocalRequireEmailConfirmation()))
}

func newMailer(cfg config.Config) mailer.Mailer {
	if cfg.GetSmtpHost() == "" {
		return mailer.LogMailer{}
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.GetSmtpHost(),
		Port:     cfg.GetSmtpPort(),
		Account:  cfg.GetSmtpAccount(),
		Password: cfg.GetSmtpPassword(),
		Sender:   cfg.GetSmtpSender(),
	})
}
