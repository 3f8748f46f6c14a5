package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	rate, err := cfg.GetRateLimit()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, rate.Window)
	assert.Equal(t, 10, rate.MaxRequests)
	assert.Equal(t, "memory", rate.Type)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.True(t, cache.Enabled)
	assert.Equal(t, 24*time.Hour, cache.TTL)

	collectors, err := cfg.GetCollectors()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, collectors.Timeout)
	assert.Equal(t, "doh", collectors.DNSMode)
	assert.Len(t, collectors.RDAPEndpoints, 2)

	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Equal(t, "http", server.GatewayType)
	assert.True(t, server.TrustProxyHeaders)

	assert.Equal(t, core.DefaultScoringPolicy(), cfg.GetPolicy())
	assert.Equal(t, "log", cfg.GetAudit().Type)
}

func TestPolicyOverrides(t *testing.T) {
	v := NewEmptyViper()
	v.Set("checks.mx.weight", 45)
	v.Set("checks.domain_reputation.enabled", false)
	v.Set("checks.domain_age.young_days", 14)

	policy := NewFromViper(v).GetPolicy()
	assert.Equal(t, 45, policy.Checks[core.CheckMX].Weight)
	assert.False(t, policy.Enabled(core.CheckDomainReputation))
	assert.True(t, policy.Enabled(core.CheckDisposable))
	assert.Equal(t, 14, policy.YoungDomainDays)
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("ratelimit.window", "soon")

	_, err := NewFromViper(v).GetRateLimit()
	assert.Error(t, err)
}

func TestReadsConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("cache:\n  ttl: 30m\nlists:\n  brands: [acme, globex]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("EMAIL_RISK_RATELIMIT_MAX_REQUESTS", "25")

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, LoadInto(v))

	cfg := NewFromViper(v)
	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cache.TTL)
	assert.Equal(t, []string{"acme", "globex"}, cfg.GetLists().Brands)

	rate, err := cfg.GetRateLimit()
	require.NoError(t, err)
	assert.Equal(t, 25, rate.MaxRequests)
}
