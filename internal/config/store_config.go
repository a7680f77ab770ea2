package config

import (
	"strconv"
	"time"
)

const (
	DashboardStatsDemo   = "demo"
	DashboardStatsOrders = "orders"
)

type StoreConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
	GetRedisURL() string
	GetCacheStaleTime() time.Duration
	GetCacheEvictTime() time.Duration
	GetCacheSize() int
	GetDashboardStats() string
	GetDashboardRecentOrders() int
	GetReconcileInterval() time.Duration
	GetReconcileGrace() time.Duration
}

type Store struct {
	settings
}

var _ StoreConfig = Store{}

// GetDatabaseURL is empty in development, in which case in-memory repositories are used.
func (s Store) GetDatabaseURL() string {
	return s.get("DATABASE_URL", "")
}

func (s Store) GetDatabaseMaxConns() int32 {
	conns, err := strconv.Atoi(s.get("DATABASE_MAX_CONNS", "25"))
	if err != nil || conns <= 0 {
		return 25
	}
	return int32(conns)
}

// GetRedisURL selects the shared query cache. Empty keeps the cache in process.
func (s Store) GetRedisURL() string {
	return s.get("REDIS_URL", "")
}

func (s Store) GetCacheStaleTime() time.Duration {
	return s.duration("CACHE_STALE_TIME", 5*time.Minute)
}

func (s Store) GetCacheEvictTime() time.Duration {
	return s.duration("CACHE_EVICT_TIME", 10*time.Minute)
}

func (s Store) GetCacheSize() int {
	size, err := strconv.Atoi(s.get("CACHE_SIZE", "1024"))
	if err != nil || size <= 0 {
		return 1024
	}
	return size
}

func (s Store) GetDashboardStats() string {
	return s.get("DASHBOARD_STATS", DashboardStatsDemo)
}

// GetDashboardRecentOrders is how many orders the dashboard overview lists.
func (s Store) GetDashboardRecentOrders() int {
	limit, err := strconv.Atoi(s.get("DASHBOARD_RECENT_ORDERS", "5"))
	if err != nil || limit <= 0 {
		return 5
	}
	return limit
}

func (s Store) GetReconcileInterval() time.Duration {
	return s.duration("RECONCILE_INTERVAL", time.Minute)
}

// GetReconcileGrace leaves freshly created organizations alone so the reconciler does not race the registration request.
func (s Store) GetReconcileGrace() time.Duration {
	return s.duration("RECONCILE_GRACE", 2*time.Minute)
}
