package core

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/email-risk/internal/metrics"
	"go.uber.org/zap"
)

// Collector names used in logs and metrics
const (
	collectorMX         = "mx"
	collectorDomainAge  = "domain_age"
	collectorDomainFeed = "domain_reputation"
	collectorIPFeed     = "ip_reputation"
)

type collected struct {
	Facts
	networkOwner string
}

// probe runs fn with its own deadline and returns as soon as either fn
// finishes or the deadline passes, whichever comes first
func probe[T any](ctx context.Context, e *RiskEngine, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.CollectorTimeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	start := time.Now()
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	metrics.CollectorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case errors.Is(r.err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(r.err, ErrNotConfigured):
		outcome = "skipped"
	case r.err != nil:
		outcome = "error"
	}
	metrics.CollectorResultsTotal.WithLabelValues(name, outcome).Inc()
	if r.err != nil && outcome != "skipped" {
		e.logger.Debug("Collector failed open",
			zap.String("collector", name),
			zap.String("outcome", outcome),
			zap.Error(r.err))
	}
	return r.value, r.err
}

func (e *RiskEngine) probeMX(ctx context.Context, domain string) MXState {
	if e.collectors.MX == nil {
		return MXUnknown
	}
	hosts, err := probe(ctx, e, collectorMX, func(ctx context.Context) ([]string, error) {
		return e.collectors.MX.LookupMX(ctx, domain)
	})
	switch {
	case err != nil:
		return MXUnknown
	case len(hosts) == 0:
		e.logger.Debug("No MX records", zap.String("domain", domain))
		return MXAbsent
	default:
		return MXPresent
	}
}

func (e *RiskEngine) probeDomainAge(ctx context.Context, domain string) *int {
	if e.collectors.DomainAge == nil {
		return nil
	}
	registered, err := probe(ctx, e, collectorDomainAge, func(ctx context.Context) (time.Time, error) {
		return e.collectors.DomainAge.RegistrationDate(ctx, domain)
	})
	if err != nil || registered.IsZero() {
		return nil
	}
	days := int(e.now().Sub(registered).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

func (e *RiskEngine) probeDomainReputation(ctx context.Context, domain string) ReputationSignal {
	if e.collectors.DomainFeed == nil {
		return ReputationSignal{Label: LabelNotChecked}
	}
	report, err := probe(ctx, e, collectorDomainFeed, func(ctx context.Context) (*DomainReport, error) {
		return e.collectors.DomainFeed.DomainReport(ctx, domain)
	})
	return ClassifyDomainReport(report, err, e.opts.Policy.Reputation)
}

type ipProbe struct {
	signal ReputationSignal
	owner  string
}

func (e *RiskEngine) probeIPReputation(ctx context.Context, domain string) (ReputationSignal, string) {
	if e.collectors.IPFeed == nil || e.collectors.Addresses == nil {
		return ReputationSignal{Label: LabelNotChecked}, ""
	}
	weights := e.opts.Policy.Reputation
	res, err := probe(ctx, e, collectorIPFeed, func(ctx context.Context) (ipProbe, error) {
		addrs, err := e.collectors.Addresses.LookupA(ctx, domain)
		if err != nil {
			return ipProbe{}, err
		}
		if len(addrs) == 0 {
			return ipProbe{signal: ReputationSignal{Weight: weights.NoAddress, Label: LabelNoAddress}}, nil
		}
		ip := addrs[0]
		confidence, err := e.collectors.IPFeed.AbuseConfidence(ctx, ip)
		if err != nil && !errors.Is(err, ErrNotConfigured) {
			e.logger.Debug("IP feed lookup failed", zap.String("ip", ip), zap.Error(err))
		}
		res := ipProbe{signal: ClassifyAbuseConfidence(confidence, err, weights)}
		if e.collectors.NetworkOwner != nil {
			if owner, oerr := e.collectors.NetworkOwner.Owner(ip); oerr == nil {
				res.owner = owner
			}
		}
		return res, nil
	})
	if err != nil {
		return ClassifyAbuseConfidence(0, err, weights), ""
	}
	return res.signal, res.owner
}
