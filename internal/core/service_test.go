package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/email-risk/internal/adapters/cache"
	"github.com/mikey/email-risk/internal/adapters/ratelimit"
	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/heuristics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCollectors answers every probe from canned values and counts calls
type fakeCollectors struct {
	mx        []string
	mxErr     error
	addrs     []string
	addrsErr  error
	age       time.Duration
	ageErr    error
	report    *core.DomainReport
	reportErr error
	abuse     int
	abuseErr  error
	owner     string

	// block, when set, stalls every probe until closed regardless of ctx
	block chan struct{}

	calls atomic.Int32
}

func (f *fakeCollectors) wait() {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeCollectors) LookupMX(context.Context, string) ([]string, error) {
	f.wait()
	return f.mx, f.mxErr
}

func (f *fakeCollectors) LookupA(context.Context, string) ([]string, error) {
	f.wait()
	return f.addrs, f.addrsErr
}

func (f *fakeCollectors) RegistrationDate(context.Context, string) (time.Time, error) {
	f.wait()
	if f.ageErr != nil {
		return time.Time{}, f.ageErr
	}
	return time.Now().Add(-f.age), nil
}

func (f *fakeCollectors) DomainReport(context.Context, string) (*core.DomainReport, error) {
	f.wait()
	return f.report, f.reportErr
}

func (f *fakeCollectors) AbuseConfidence(context.Context, string) (int, error) {
	f.wait()
	return f.abuse, f.abuseErr
}

func (f *fakeCollectors) Owner(string) (string, error) {
	if f.owner == "" {
		return "", core.ErrNotFound
	}
	return f.owner, nil
}

func (f *fakeCollectors) all() core.Collectors {
	return core.Collectors{
		MX:           f,
		Addresses:    f,
		DomainAge:    f,
		DomainFeed:   f,
		IPFeed:       f,
		NetworkOwner: f,
	}
}

// healthy returns collectors describing an established, clean domain
func healthy() *fakeCollectors {
	return &fakeCollectors{
		mx:     []string{"mx1.example.com"},
		addrs:  []string{"192.0.2.10"},
		age:    3650 * 24 * time.Hour,
		report: &core.DomainReport{Harmless: 70, Undetected: 10},
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []*core.SecurityEvent
}

func (s *recordingSink) Record(_ context.Context, event *core.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) recorded() []*core.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*core.SecurityEvent(nil), s.events...)
}

type harness struct {
	engine  *core.RiskEngine
	cache   *cache.MemoryCache
	limiter *ratelimit.MemoryLimiter
	events  *recordingSink
}

func newHarness(t *testing.T, collectors core.Collectors, opts core.EngineOptions) *harness {
	t.Helper()
	logger := zap.NewNop()

	memCache := cache.NewMemoryCache(logger, time.Hour)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{Window: time.Minute, MaxRequests: 10, CleanupInterval: time.Hour}, logger)
	t.Cleanup(memCache.Stop)
	t.Cleanup(limiter.Stop)

	if opts.CacheTTL == 0 {
		opts.CacheEnabled = true
		opts.CacheTTL = time.Hour
	}
	if opts.CollectorTimeout == 0 {
		opts.CollectorTimeout = time.Second
	}

	events := &recordingSink{}
	engine := core.NewRiskEngine(
		limiter,
		memCache,
		heuristics.NewEvaluator(heuristics.DefaultLists(), logger),
		collectors,
		events,
		logger,
		opts,
	)
	return &harness{engine: engine, cache: memCache, limiter: limiter, events: events}
}

func evaluate(t *testing.T, h *harness, email string) *core.RiskVerdict {
	t.Helper()
	outcome, err := h.engine.Evaluate(context.Background(), email, "203.0.113.1")
	require.NoError(t, err)
	require.False(t, outcome.RateLimited)
	require.NotNil(t, outcome.Verdict)
	return outcome.Verdict
}

func TestEvaluateCleanDomain(t *testing.T) {
	collectors := healthy()
	collectors.owner = "AS64500 Example Networks"
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	v := evaluate(t, h, "  Alice@Example.com ")

	assert.Equal(t, "alice@example.com", v.Email)
	assert.Equal(t, "example.com", v.Domain)
	assert.Equal(t, core.StatusAllowed, v.Status)
	assert.Equal(t, 0, v.RiskScore)
	assert.Equal(t, []string{core.NoIssuesReason}, v.Reasons)
	assert.True(t, v.MXValid)
	require.NotNil(t, v.DomainAgeDays)
	assert.Equal(t, 3650, *v.DomainAgeDays)
	assert.Equal(t, "clean", v.Reputation.Domain)
	assert.Equal(t, "low risk (0%)", v.Reputation.IP)
	assert.Equal(t, "AS64500 Example Networks", v.Reputation.ASN)
	assert.Equal(t, "proceed with normal authentication", v.RecommendedAction)
	assert.Empty(t, h.events.recorded(), "allowed verdicts are not audited")
}

func TestEvaluateDisposableDomain(t *testing.T) {
	h := newHarness(t, healthy().all(), core.EngineOptions{})

	v := evaluate(t, h, "user@mailinator.com")

	assert.Equal(t, core.StatusBlocked, v.Status)
	assert.Equal(t, 60, v.RiskScore)
	assert.Equal(t, []string{"disposable email provider detected"}, v.Reasons)

	events := h.events.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "email_validation_blocked", events[0].EventType)
	assert.Equal(t, "203.0.113.1", events[0].ClientIP)
	assert.Equal(t, 60, events[0].RiskScore)
	assert.NotEmpty(t, events[0].ID)
}

func TestEvaluateInvalidFormat(t *testing.T) {
	collectors := healthy()
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	for _, raw := range []string{"not-an-email", "a@@b.com", "", "user@"} {
		v := evaluate(t, h, raw)
		assert.Equal(t, core.StatusBlocked, v.Status, raw)
		assert.Equal(t, 100, v.RiskScore, raw)
		assert.Equal(t, []string{core.InvalidFormatReason}, v.Reasons, raw)
	}

	assert.Equal(t, int32(0), collectors.calls.Load(), "invalid addresses never reach the collectors")
	assert.Equal(t, 0, h.cache.Len(), "invalid verdicts are not cached")
	assert.Len(t, h.events.recorded(), 4)
}

func TestEvaluateCachesByDomain(t *testing.T) {
	collectors := healthy()
	collectors.mx = nil
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	first := evaluate(t, h, "alice@example.com")
	callsAfterFirst := collectors.calls.Load()
	second := evaluate(t, h, "bob@example.com")

	assert.Equal(t, callsAfterFirst, collectors.calls.Load(), "second lookup is served from cache")
	assert.Equal(t, "bob@example.com", second.Email)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.RiskScore, second.RiskScore)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.Equal(t, "alice@example.com", first.Email, "cached copy does not alias the first verdict")
	assert.Equal(t, 1, h.cache.Len())

	// Both the fresh and the cached CHALLENGE verdicts are audited.
	assert.Len(t, h.events.recorded(), 2)
}

func TestEvaluateCacheDisabled(t *testing.T) {
	collectors := healthy()
	h := newHarness(t, collectors.all(), core.EngineOptions{CacheEnabled: false, CacheTTL: time.Hour})

	evaluate(t, h, "alice@example.com")
	callsAfterFirst := collectors.calls.Load()
	evaluate(t, h, "alice@example.com")

	assert.Equal(t, 2*callsAfterFirst, collectors.calls.Load())
	assert.Equal(t, 0, h.cache.Len())
}

func TestEvaluateRateLimit(t *testing.T) {
	h := newHarness(t, healthy().all(), core.EngineOptions{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		outcome, err := h.engine.Evaluate(ctx, "alice@example.com", "198.51.100.4")
		require.NoError(t, err)
		require.False(t, outcome.RateLimited, "request %d", i+1)
		assert.Equal(t, 10-(i+1), outcome.Rate.Remaining)
	}

	outcome, err := h.engine.Evaluate(ctx, "alice@example.com", "198.51.100.4")
	require.NoError(t, err)
	assert.True(t, outcome.RateLimited)
	assert.Nil(t, outcome.Verdict)
	assert.Equal(t, 0, outcome.Rate.Remaining)
	assert.Greater(t, outcome.Rate.ResetIn, time.Duration(0))

	// Other clients keep their own budget.
	outcome, err = h.engine.Evaluate(ctx, "alice@example.com", "198.51.100.5")
	require.NoError(t, err)
	assert.False(t, outcome.RateLimited)
}

func TestEvaluateNoMXAndYoungDomain(t *testing.T) {
	collectors := healthy()
	collectors.mx = nil
	collectors.age = 5*24*time.Hour + time.Hour
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	v := evaluate(t, h, "user@example.com")

	assert.Equal(t, core.StatusChallenge, v.Status)
	assert.Equal(t, 55, v.RiskScore)
	assert.Equal(t, []string{"no valid mail routing (MX) records", "domain too new (5 days)"}, v.Reasons)
	assert.False(t, v.MXValid)
	assert.Equal(t, "additional verification required (CAPTCHA or second factor)", v.RecommendedAction)

	events := h.events.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, "email_validation_challenge", events[0].EventType)
}

func TestEvaluateCollectorsTimeOut(t *testing.T) {
	collectors := healthy()
	collectors.block = make(chan struct{})
	defer close(collectors.block)
	h := newHarness(t, collectors.all(), core.EngineOptions{CollectorTimeout: 50 * time.Millisecond})

	start := time.Now()
	v := evaluate(t, h, "user@example.com")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "probes are bounded by their timeout")
	assert.Equal(t, core.StatusAllowed, v.Status)
	assert.Equal(t, 0, v.RiskScore)
	assert.False(t, v.MXValid)
	assert.Nil(t, v.DomainAgeDays)
	assert.Equal(t, "verification error", v.Reputation.Domain)
	assert.Equal(t, "verification error", v.Reputation.IP)
}

func TestEvaluateCollectorErrorsFailOpen(t *testing.T) {
	boom := errors.New("upstream unavailable")
	collectors := &fakeCollectors{mxErr: boom, addrsErr: boom, ageErr: boom, reportErr: boom}
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	v := evaluate(t, h, "user@example.com")

	assert.Equal(t, core.StatusAllowed, v.Status)
	assert.Equal(t, []string{core.NoIssuesReason}, v.Reasons)
	assert.Equal(t, "verification error", v.Reputation.Domain)
	assert.Equal(t, "verification error", v.Reputation.IP)
}

func TestEvaluateTyposquat(t *testing.T) {
	h := newHarness(t, healthy().all(), core.EngineOptions{})

	v := evaluate(t, h, "billing@gogle.com")
	assert.Equal(t, []string{"possible typosquatting of google"}, v.Reasons)
	assert.Equal(t, 25, v.RiskScore)
	assert.Equal(t, core.StatusAllowed, v.Status)

	v = evaluate(t, h, "someone@google.com")
	assert.Equal(t, []string{core.NoIssuesReason}, v.Reasons)
}

func TestEvaluateDomainReputation(t *testing.T) {
	tests := []struct {
		name       string
		report     *core.DomainReport
		err        error
		wantScore  int
		wantLabel  string
		wantStatus core.Status
	}{
		{
			name:       "malicious",
			report:     &core.DomainReport{Malicious: 3, Harmless: 50},
			wantScore:  55,
			wantLabel:  "malicious (3 detections)",
			wantStatus: core.StatusChallenge,
		},
		{
			name:       "suspicious",
			report:     &core.DomainReport{Suspicious: 2},
			wantScore:  30,
			wantLabel:  "suspicious (2 detections)",
			wantStatus: core.StatusChallenge,
		},
		{
			name:       "unknown to the feed",
			err:        core.ErrNotFound,
			wantScore:  5,
			wantLabel:  "unknown",
			wantStatus: core.StatusAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collectors := healthy()
			collectors.report, collectors.reportErr = tt.report, tt.err
			h := newHarness(t, collectors.all(), core.EngineOptions{})

			v := evaluate(t, h, "user@example.com")
			assert.Equal(t, tt.wantScore, v.RiskScore)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantLabel, v.Reputation.Domain)
			assert.Equal(t, []string{"domain reputation: " + tt.wantLabel}, v.Reasons)
		})
	}
}

func TestEvaluateIPReputation(t *testing.T) {
	collectors := healthy()
	collectors.abuse = 80
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	v := evaluate(t, h, "user@example.com")
	assert.Equal(t, 30, v.RiskScore)
	assert.Equal(t, core.StatusChallenge, v.Status)
	assert.Equal(t, []string{"IP reputation: high risk (80%)"}, v.Reasons)
}

func TestEvaluateWithoutFeeds(t *testing.T) {
	collectors := healthy()
	c := collectors.all()
	c.DomainFeed = nil
	c.IPFeed = nil
	h := newHarness(t, c, core.EngineOptions{})

	v := evaluate(t, h, "user@example.com")
	assert.Equal(t, "not checked", v.Reputation.Domain)
	assert.Equal(t, "not checked", v.Reputation.IP)
	assert.Equal(t, core.StatusAllowed, v.Status)
}

func TestEvaluateDomainWithoutAddress(t *testing.T) {
	collectors := healthy()
	collectors.addrs = nil
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	v := evaluate(t, h, "user@example.com")
	assert.Equal(t, 5, v.RiskScore)
	assert.Equal(t, "no IP address", v.Reputation.IP)
	assert.Equal(t, []string{"IP reputation: no IP address"}, v.Reasons)
}

func TestEvaluateDisabledCheckSkipsProbe(t *testing.T) {
	collectors := healthy()
	collectors.mx = nil
	policy := core.DefaultScoringPolicy()
	policy.Checks[core.CheckMX] = core.CheckSetting{Enabled: false, Weight: 30}
	policy.Checks[core.CheckDomainReputation] = core.CheckSetting{Enabled: false}
	h := newHarness(t, collectors.all(), core.EngineOptions{Policy: policy})

	v := evaluate(t, h, "user@example.com")
	assert.Equal(t, 0, v.RiskScore)
	assert.Equal(t, "not checked", v.Reputation.Domain)
}

func TestEvaluateCancelledContext(t *testing.T) {
	collectors := healthy()
	collectors.block = make(chan struct{})
	defer close(collectors.block)
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Evaluate(ctx, "user@example.com", "203.0.113.1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, h.cache.Len())
	assert.Empty(t, h.events.recorded())
}

func TestEvaluateConcurrentCallers(t *testing.T) {
	h := newHarness(t, healthy().all(), core.EngineOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.engine.Evaluate(context.Background(), "user@mailinator.com", "192.0.2.77")
			if assert.NoError(t, err) && assert.NotNil(t, outcome.Verdict) {
				assert.Equal(t, core.StatusBlocked, outcome.Verdict.Status)
			}
		}()
	}
	wg.Wait()
}

func TestEvaluateInternationalizedDomainSpellings(t *testing.T) {
	collectors := healthy()
	h := newHarness(t, collectors.all(), core.EngineOptions{})

	unicode := evaluate(t, h, "kunde@bücher.de")
	callsAfterFirst := collectors.calls.Load()
	ascii := evaluate(t, h, "kunde@xn--bcher-kva.de")

	assert.Equal(t, "xn--bcher-kva.de", unicode.Domain)
	assert.Equal(t, unicode.Domain, ascii.Domain)
	assert.Equal(t, core.StatusAllowed, unicode.Status)
	assert.Equal(t, unicode.RiskScore, ascii.RiskScore)
	assert.Equal(t, unicode.Reasons, ascii.Reasons)
	assert.Equal(t, callsAfterFirst, collectors.calls.Load(), "both spellings share one cache entry")
	assert.Equal(t, 1, h.cache.Len())
}

func TestAdmitCountsAgainstBudget(t *testing.T) {
	h := newHarness(t, healthy().all(), core.EngineOptions{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rate := h.engine.Admit(ctx, "198.51.100.8")
		require.True(t, rate.Allowed, "request %d", i+1)
		assert.Equal(t, 10, rate.Limit)
	}
	rate := h.engine.Admit(ctx, "198.51.100.8")
	assert.False(t, rate.Allowed)

	outcome, err := h.engine.Evaluate(ctx, "alice@example.com", "198.51.100.8")
	require.NoError(t, err)
	assert.True(t, outcome.RateLimited)

	// Assess does not consume budget of its own.
	v, err := h.engine.Assess(ctx, "alice@example.com", "198.51.100.8")
	require.NoError(t, err)
	assert.Equal(t, core.StatusAllowed, v.Status)
}

func TestAdmitWithoutLimiter(t *testing.T) {
	engine := core.NewRiskEngine(nil, nil, nil, core.Collectors{}, nil, zap.NewNop(), core.EngineOptions{})
	rate := engine.Admit(context.Background(), "anyone")
	assert.True(t, rate.Allowed)
	assert.Equal(t, 0, rate.Limit)
}

// mxSignal closes started on its first lookup
type mxSignal struct {
	once    sync.Once
	started chan struct{}
}

func (m *mxSignal) LookupMX(context.Context, string) ([]string, error) {
	m.once.Do(func() { close(m.started) })
	return []string{"mx.example.com"}, nil
}

// waitingHeuristics reports whether a lookup started while it was running
type waitingHeuristics struct {
	started   chan struct{}
	sawLookup atomic.Bool
}

func (w *waitingHeuristics) Evaluate(string) core.HeuristicResult {
	select {
	case <-w.started:
		w.sawLookup.Store(true)
	case <-time.After(time.Second):
	}
	return core.HeuristicResult{}
}

func TestEvaluateRunsHeuristicsAlongsideLookups(t *testing.T) {
	mx := &mxSignal{started: make(chan struct{})}
	static := &waitingHeuristics{started: mx.started}
	engine := core.NewRiskEngine(nil, nil, static, core.Collectors{MX: mx}, nil, zap.NewNop(), core.EngineOptions{})

	outcome, err := engine.Evaluate(context.Background(), "user@example.com", "203.0.113.1")
	require.NoError(t, err)
	assert.True(t, outcome.Verdict.MXValid)
	assert.True(t, static.sawLookup.Load(), "static checks overlap the network lookups")
}
