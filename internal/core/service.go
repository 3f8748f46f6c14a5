package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/email-risk/internal/emailaddr"
	"github.com/mikey/email-risk/internal/metrics"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Collectors groups the outbound ports probed for every uncached domain.
// A nil reputation feed is reported as "not checked".
type Collectors struct {
	MX           MXResolver
	Addresses    AddressResolver
	DomainAge    DomainAgeResolver
	DomainFeed   DomainReputationFeed
	IPFeed       IPReputationFeed
	NetworkOwner NetworkOwnerLookup
}

// EngineOptions tunes the risk engine
type EngineOptions struct {
	CacheEnabled     bool
	CacheTTL         time.Duration
	CollectorTimeout time.Duration
	Policy           ScoringPolicy
}

// RiskEngine is the core service for email risk assessment
type RiskEngine struct {
	limiter    RateLimiter
	cache      CacheRepository
	heuristics HeuristicEvaluator
	collectors Collectors
	events     SecurityEventSink
	logger     *zap.Logger
	opts       EngineOptions
	now        func() time.Time
}

// NewRiskEngine creates a new risk engine. limiter, cache and events may be
// nil to disable rate limiting, caching and auditing. events is called
// inline and must not block.
func NewRiskEngine(
	limiter RateLimiter,
	cache CacheRepository,
	heuristics HeuristicEvaluator,
	collectors Collectors,
	events SecurityEventSink,
	logger *zap.Logger,
	opts EngineOptions,
) *RiskEngine {
	if opts.CollectorTimeout <= 0 {
		opts.CollectorTimeout = 4 * time.Second
	}
	if opts.Policy.Checks == nil {
		opts.Policy = DefaultScoringPolicy()
	}
	return &RiskEngine{
		limiter:    limiter,
		cache:      cache,
		heuristics: heuristics,
		collectors: collectors,
		events:     events,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Evaluate admits the client and assesses one email address on its behalf.
// The only error returned is the cancellation of ctx.
func (e *RiskEngine) Evaluate(ctx context.Context, rawEmail, clientID string) (*Outcome, error) {
	outcome := &Outcome{Rate: e.Admit(ctx, clientID)}
	if !outcome.Rate.Allowed {
		outcome.RateLimited = true
		return outcome, nil
	}
	verdict, err := e.Assess(ctx, rawEmail, clientID)
	if err != nil {
		return nil, err
	}
	outcome.Verdict = verdict
	return outcome, nil
}

// Admit counts one request against the client's budget. Without a limiter
// every request is allowed and the decision carries no limit.
func (e *RiskEngine) Admit(ctx context.Context, clientID string) RateDecision {
	if e.limiter == nil {
		return RateDecision{Allowed: true}
	}
	rate := e.limiter.Allow(ctx, clientID)
	if !rate.Allowed {
		metrics.RateLimitedTotal.Inc()
		e.logger.Info("Rate limit exceeded",
			zap.String("client", clientID),
			zap.Int64("reset_in_ms", rate.ResetInMillis()))
	}
	return rate
}

// Assess scores an address for a client that has already been admitted
func (e *RiskEngine) Assess(ctx context.Context, rawEmail, clientID string) (*RiskVerdict, error) {
	email := emailaddr.Normalize(rawEmail)
	if !emailaddr.IsValidSyntax(email) {
		verdict := e.invalidVerdict(email)
		e.finish(verdict, clientID)
		return verdict, nil
	}
	domain := emailaddr.Domain(email)

	if cached := e.cachedVerdict(ctx, domain); cached != nil {
		e.logger.Debug("Cache hit for domain", zap.String("domain", domain))
		verdict := cached.withEmail(email)
		e.finish(verdict, clientID)
		return verdict, nil
	}

	facts := e.collect(ctx, domain)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score, reasons := Score(Findings(&facts.Facts, e.opts.Policy))
	status := StatusFor(score)
	verdict := &RiskVerdict{
		Email:         email,
		Status:        status,
		RiskScore:     score,
		Reasons:       reasons,
		Domain:        domain,
		MXValid:       facts.MX == MXPresent,
		DomainAgeDays: facts.AgeDays,
		Reputation: Reputation{
			Domain: facts.DomainSignal.Label,
			IP:     facts.IPSignal.Label,
			ASN:    facts.networkOwner,
		},
		RecommendedAction: RecommendedAction(status),
		EvaluatedAt:       e.now(),
	}

	e.storeVerdict(ctx, domain, verdict)
	e.finish(verdict, clientID)
	return verdict, nil
}

func (e *RiskEngine) invalidVerdict(email string) *RiskVerdict {
	return &RiskVerdict{
		Email:             email,
		Status:            StatusBlocked,
		RiskScore:         100,
		Reasons:           []string{InvalidFormatReason},
		Domain:            emailaddr.Domain(email),
		Reputation:        Reputation{Domain: LabelNotChecked, IP: LabelNotChecked},
		RecommendedAction: RecommendedAction(StatusBlocked),
		EvaluatedAt:       e.now(),
	}
}

func (e *RiskEngine) cacheEnabled() bool {
	return e.opts.CacheEnabled && e.cache != nil
}

func (e *RiskEngine) cachedVerdict(ctx context.Context, domain string) *RiskVerdict {
	if !e.cacheEnabled() {
		return nil
	}
	entry, err := e.cache.Get(ctx, domain)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.logger.Warn("Failed to read cache", zap.String("domain", domain), zap.Error(err))
		}
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	if entry == nil || entry.Verdict == nil || entry.Expired(e.now()) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return entry.Verdict
}

func (e *RiskEngine) storeVerdict(ctx context.Context, domain string, verdict *RiskVerdict) {
	if !e.cacheEnabled() {
		return
	}
	now := e.now()
	entry := &CacheEntry{
		Domain:    domain,
		Verdict:   verdict.withEmail(verdict.Email),
		WrittenAt: now,
		ExpiresAt: now.Add(e.opts.CacheTTL),
	}
	if err := e.cache.Set(ctx, entry); err != nil {
		e.logger.Error("Failed to update cache", zap.String("domain", domain), zap.Error(err))
	}
}

// finish counts the verdict and hands non-ALLOWED ones to the audit sink
func (e *RiskEngine) finish(verdict *RiskVerdict, clientID string) {
	metrics.EvaluationsTotal.WithLabelValues(string(verdict.Status)).Inc()
	e.logger.Info("Evaluated email",
		zap.String("domain", verdict.Domain),
		zap.String("status", string(verdict.Status)),
		zap.Int("score", verdict.RiskScore),
		zap.Strings("reasons", verdict.Reasons))

	if verdict.Status == StatusAllowed || e.events == nil {
		return
	}
	event := &SecurityEvent{
		ID:         uuid.NewString(),
		EventType:  "email_validation_" + strings.ToLower(string(verdict.Status)),
		Email:      verdict.Email,
		ClientIP:   clientID,
		Domain:     verdict.Domain,
		RiskScore:  verdict.RiskScore,
		Reasons:    append([]string(nil), verdict.Reasons...),
		Reputation: verdict.Reputation,
		OccurredAt: e.now(),
	}
	if err := e.events.Record(context.Background(), event); err != nil {
		e.logger.Warn("Failed to record security event", zap.String("event_type", event.EventType), zap.Error(err))
	}
}

// collect runs the static checks alongside the four external probes. Each
// goroutine writes only its own fields of the result.
func (e *RiskEngine) collect(ctx context.Context, domain string) *collected {
	f := &collected{}
	f.Domain = domain

	policy := e.opts.Policy
	var wg conc.WaitGroup
	if e.heuristics != nil {
		wg.Go(func() {
			h := e.heuristics.Evaluate(domain)
			f.Disposable = h.Disposable
			f.SuspiciousTLD = h.SuspiciousTLD
			f.TyposquatBrand = h.TyposquatBrand
			f.DenseLabel = h.DenseLabel
		})
	}
	if policy.Enabled(CheckMX) {
		wg.Go(func() { f.MX = e.probeMX(ctx, domain) })
	}
	if policy.Enabled(CheckDomainAge) {
		wg.Go(func() { f.AgeDays = e.probeDomainAge(ctx, domain) })
	}
	if policy.Enabled(CheckDomainReputation) {
		wg.Go(func() { f.DomainSignal = e.probeDomainReputation(ctx, domain) })
	} else {
		f.DomainSignal.Label = LabelNotChecked
	}
	if policy.Enabled(CheckIPReputation) {
		wg.Go(func() { f.IPSignal, f.networkOwner = e.probeIPReputation(ctx, domain) })
	} else {
		f.IPSignal.Label = LabelNotChecked
	}
	wg.Wait()
	return f
}
