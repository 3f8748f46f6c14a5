package config

import (
	"fmt"
	"time"

	"github.com/mikey/email-risk/internal/core"
)

// ServerConfig represents the gateway configuration
type ServerConfig struct {
	GatewayType        string
	ListenAddress      string
	SMTPAddress        string
	SMTPDomain         string
	SMTPDeferChallenge bool
	TrustProxyHeaders  bool
	RequestTimeout     time.Duration
	AllowedOrigins     []string
}

// RateLimitConfig represents the per-client rate limit configuration
type RateLimitConfig struct {
	Type             string
	Window           time.Duration
	MaxRequests      int
	CleanupFrequency time.Duration
	RedisAddr        string
}

// CacheConfig represents the verdict cache configuration
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
}

// ListsConfig holds operator-supplied curated lists
type ListsConfig struct {
	DisposableDomains []string
	SuspiciousTLDs    []string
	Brands            []string
}

// CollectorsConfig represents the external probe configuration
type CollectorsConfig struct {
	Timeout           time.Duration
	DNSMode           string
	DoHURL            string
	Nameserver        string
	RDAPEndpoints     []string
	WhoisEnabled      bool
	VirusTotalAPIKey  string
	VirusTotalBaseURL string
	AbuseIPDBAPIKey   string
	AbuseIPDBBaseURL  string
	AbuseIPDBMaxAge   int
	ASNDatabasePath   string
}

// AuditConfig represents the security event sink configuration
type AuditConfig struct {
	Type        string
	QueueSize   int
	PostgresDSN string
	HTTPURL     string
	HTTPKey     string
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.request_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server.request_timeout: %w", err)
	}
	return ServerConfig{
		GatewayType:        c.GetString("server.gateway_type"),
		ListenAddress:      c.GetString("server.listen_address"),
		SMTPAddress:        c.GetString("server.smtp_address"),
		SMTPDomain:         c.GetString("server.smtp_domain"),
		SMTPDeferChallenge: c.GetBool("server.smtp_defer_challenge"),
		TrustProxyHeaders:  c.GetBool("server.trust_proxy_headers"),
		RequestTimeout:     timeout,
		AllowedOrigins:     c.GetStringSlice("server.allowed_origins"),
	}, nil
}

// GetRateLimit returns the rate limit configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit.window: %w", err)
	}
	cleanup, err := c.GetDuration("ratelimit.cleanup_frequency")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit.cleanup_frequency: %w", err)
	}
	return RateLimitConfig{
		Type:             c.GetString("ratelimit.type"),
		Window:           window,
		MaxRequests:      c.GetInt("ratelimit.max_requests"),
		CleanupFrequency: cleanup,
		RedisAddr:        c.GetString("ratelimit.redis_addr"),
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
	}, nil
}

// GetPolicy builds the scoring policy from the checks section
func (c *Config) GetPolicy() core.ScoringPolicy {
	policy := core.DefaultScoringPolicy()
	for check := range policy.Checks {
		policy.Checks[check] = core.CheckSetting{
			Enabled: c.GetBool("checks." + check + ".enabled"),
			Weight:  c.GetInt("checks." + check + ".weight"),
		}
	}
	if days := c.GetInt("checks.domain_age.young_days"); days > 0 {
		policy.YoungDomainDays = days
	}
	return policy
}

// GetLists returns the curated list overrides
func (c *Config) GetLists() ListsConfig {
	return ListsConfig{
		DisposableDomains: c.GetStringSlice("lists.disposable_domains"),
		SuspiciousTLDs:    c.GetStringSlice("lists.suspicious_tlds"),
		Brands:            c.GetStringSlice("lists.brands"),
	}
}

// GetCollectors returns the external probe configuration
func (c *Config) GetCollectors() (CollectorsConfig, error) {
	timeout, err := c.GetDuration("collectors.timeout")
	if err != nil {
		return CollectorsConfig{}, fmt.Errorf("invalid collectors.timeout: %w", err)
	}
	return CollectorsConfig{
		Timeout:           timeout,
		DNSMode:           c.GetString("dns.mode"),
		DoHURL:            c.GetString("dns.doh_url"),
		Nameserver:        c.GetString("dns.nameserver"),
		RDAPEndpoints:     c.GetStringSlice("rdap.endpoints"),
		WhoisEnabled:      c.GetBool("whois.enabled"),
		VirusTotalAPIKey:  c.GetString("virustotal.api_key"),
		VirusTotalBaseURL: c.GetString("virustotal.base_url"),
		AbuseIPDBAPIKey:   c.GetString("abuseipdb.api_key"),
		AbuseIPDBBaseURL:  c.GetString("abuseipdb.base_url"),
		AbuseIPDBMaxAge:   c.GetInt("abuseipdb.max_age_days"),
		ASNDatabasePath:   c.GetString("geoip.asn_db_path"),
	}, nil
}

// GetAudit returns the audit sink configuration
func (c *Config) GetAudit() AuditConfig {
	return AuditConfig{
		Type:        c.GetString("audit.type"),
		QueueSize:   c.GetInt("audit.queue_size"),
		PostgresDSN: c.GetString("audit.postgres_dsn"),
		HTTPURL:     c.GetString("audit.http_url"),
		HTTPKey:     c.GetString("audit.http_key"),
	}
}
