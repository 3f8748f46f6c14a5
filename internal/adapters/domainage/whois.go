package domainage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// WhoisResolver reads the creation date out of a raw WHOIS record
type WhoisResolver struct {
	lookup func(domain string) (string, error)
	logger *zap.Logger
}

// NewWhoisResolver creates a resolver backed by the public WHOIS servers
func NewWhoisResolver(logger *zap.Logger) *WhoisResolver {
	return &WhoisResolver{
		lookup: func(domain string) (string, error) { return whois.Whois(domain) },
		logger: logger,
	}
}

// RegistrationDate queries WHOIS and parses the creation date. The lookup
// itself is not cancellable; ctx only bounds how long we wait for it.
func (r *WhoisResolver) RegistrationDate(ctx context.Context, domain string) (time.Time, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := r.lookup(domain)
		done <- result{raw: raw, err: err}
	}()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return time.Time{}, fmt.Errorf("WHOIS lookup for %s failed: %w", domain, res.err)
		}
		return ParseCreationDate(res.raw)
	}
}

// ParseCreationDate extracts the creation date from a raw WHOIS record
func ParseCreationDate(raw string) (time.Time, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		if errors.Is(err, whoisparser.ErrNotFoundDomain) {
			return time.Time{}, fmt.Errorf("domain not registered: %w", core.ErrNotFound)
		}
		return time.Time{}, fmt.Errorf("failed to parse WHOIS record: %w", err)
	}
	if info.Domain == nil || info.Domain.CreatedDateInTime == nil {
		return time.Time{}, fmt.Errorf("no creation date in WHOIS record: %w", core.ErrNotFound)
	}
	return *info.Domain.CreatedDateInTime, nil
}
