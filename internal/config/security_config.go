package config

import (
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultFormStateKey = "dev-form-state-key-change-me"

type SecurityConfig interface {
	GetSessionRefreshWindow() time.Duration
	GetSessionCacheTTL() time.Duration
	GetFormStateKey() []byte
	GetFormStateTTL() time.Duration
	GetEnableRateLimiting() bool
	GetRateLimit() float64
	GetRateLimitBurst() int
	GetTrustedProxies() []netip.Prefix
}

type Security struct {
	settings
}

var _ SecurityConfig = Security{}

// GetSessionRefreshWindow is how close to expiry a session must be before the route guard refreshes it.
func (s Security) GetSessionRefreshWindow() time.Duration {
	return s.duration("SESSION_REFRESH_WINDOW", 10*time.Minute)
}

// GetSessionCacheTTL bounds how long a resolved session is trusted without asking the provider again.
func (s Security) GetSessionCacheTTL() time.Duration {
	return s.duration("SESSION_CACHE_TTL", 30*time.Second)
}

// GetFormStateKey signs the registration form state cookie.
func (s Security) GetFormStateKey() []byte {
	return []byte(s.get("FORM_STATE_KEY", defaultFormStateKey))
}

func (s Security) GetFormStateTTL() time.Duration {
	return s.duration("FORM_STATE_TTL", time.Hour)
}

func (s Security) GetEnableRateLimiting() bool {
	enabled, err := strconv.ParseBool(s.get("RATE_LIMIT_ENABLED", "true"))
	return err != nil || enabled
}

// GetRateLimit is the sustained number of credential submissions per second allowed per client IP.
func (s Security) GetRateLimit() float64 {
	limit, err := strconv.ParseFloat(s.get("RATE_LIMIT_RPS", "0.5"), 64)
	if err != nil || limit <= 0 {
		return 0.5
	}
	return limit
}

func (s Security) GetRateLimitBurst() int {
	burst, err := strconv.Atoi(s.get("RATE_LIMIT_BURST", "5"))
	if err != nil || burst <= 0 {
		return 5
	}
	return burst
}

// GetTrustedProxies lists the reverse proxies, as IPs or CIDRs, whose X-Forwarded-For header is believed
// when rate limiting. Empty means the connecting address is always the client.
func (s Security) GetTrustedProxies() []netip.Prefix {
	var prefixes []netip.Prefix
	for _, entry := range strings.Split(s.get("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			addr, err := netip.ParseAddr(entry)
			if err != nil {
				log.Warn().Str("entry", entry).Msg("ignoring invalid TRUSTED_PROXIES entry")
				continue
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			log.Warn().Str("entry", entry).Msg("ignoring invalid TRUSTED_PROXIES entry")
			continue
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return prefixes
}

func (s settings) duration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s.get(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
