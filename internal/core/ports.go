package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a backend has no record for the key
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured is returned by feeds that have no credentials
	ErrNotConfigured = errors.New("not configured")
)

// HeuristicResult is what the static checks found for a domain
type HeuristicResult struct {
	Disposable     bool
	SuspiciousTLD  string
	TyposquatBrand string
	DenseLabel     bool
}

// HeuristicEvaluator runs the static, I/O free checks
type HeuristicEvaluator interface {
	Evaluate(domain string) HeuristicResult
}

// CacheRepository defines the interface for verdict caching
type CacheRepository interface {
	Get(ctx context.Context, domain string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry) error
	Delete(ctx context.Context, domain string) error
	Cleanup(ctx context.Context) error
}

// RateLimiter decides whether a client may issue another evaluation
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) RateDecision
}

// MXResolver returns the mail exchangers of a domain. An empty result with a
// nil error is a confirmed absence of MX records.
type MXResolver interface {
	LookupMX(ctx context.Context, domain string) ([]string, error)
}

// AddressResolver returns the IPv4 addresses of a domain
type AddressResolver interface {
	LookupA(ctx context.Context, domain string) ([]string, error)
}

// DomainAgeResolver returns the registration date of a domain
type DomainAgeResolver interface {
	RegistrationDate(ctx context.Context, domain string) (time.Time, error)
}

// DomainReport is the detection summary a threat feed keeps for a domain
type DomainReport struct {
	Malicious  int
	Suspicious int
	Harmless   int
	Undetected int
}

// DomainReputationFeed looks up a domain in a threat-intel feed. It returns
// ErrNotFound when the feed has never seen the domain.
type DomainReputationFeed interface {
	DomainReport(ctx context.Context, domain string) (*DomainReport, error)
}

// IPReputationFeed returns an abuse confidence percentage for an address
type IPReputationFeed interface {
	AbuseConfidence(ctx context.Context, ip string) (int, error)
}

// NetworkOwnerLookup names the autonomous system that announces an address
type NetworkOwnerLookup interface {
	Owner(ip string) (string, error)
}

// SecurityEventSink persists audit events
type SecurityEventSink interface {
	Record(ctx context.Context, event *SecurityEvent) error
}
