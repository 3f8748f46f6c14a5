package core

import (
	"time"
)

// Status is the verdict classification returned to callers
type Status string

const (
	StatusAllowed   Status = "ALLOWED"
	StatusChallenge Status = "CHALLENGE"
	StatusBlocked   Status = "BLOCKED"
)

// Reputation holds the free-text summaries produced by the reputation feeds
type Reputation struct {
	Domain string `json:"domain"`
	IP     string `json:"ip"`
	// ASN names the network owning the resolved address, when known
	ASN string `json:"asn,omitempty"`
}

// SignalFinding is a single triggered check
type SignalFinding struct {
	Check  string `json:"check"`
	Reason string `json:"reason"`
	Weight int    `json:"weight"`
}

// RiskVerdict is the result of evaluating one email address
type RiskVerdict struct {
	Email             string     `json:"email"`
	Status            Status     `json:"status"`
	RiskScore         int        `json:"risk_score"`
	Reasons           []string   `json:"reasons"`
	Domain            string     `json:"domain"`
	MXValid           bool       `json:"mx_valid"`
	DomainAgeDays     *int       `json:"domain_age_days"`
	Reputation        Reputation `json:"reputation"`
	RecommendedAction string     `json:"recommended_action"`
	EvaluatedAt       time.Time  `json:"evaluated_at"`
}

// withEmail returns a copy of the verdict addressed to another email
func (v *RiskVerdict) withEmail(email string) *RiskVerdict {
	c := *v
	c.Email = email
	c.Reasons = append([]string(nil), v.Reasons...)
	if v.DomainAgeDays != nil {
		age := *v.DomainAgeDays
		c.DomainAgeDays = &age
	}
	return &c
}

// CacheEntry represents a cached verdict for a domain
type CacheEntry struct {
	Domain    string
	Verdict   *RiskVerdict
	WrittenAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is stale at the given instant
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// RateDecision is the outcome of a rate limiter check
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ResetInMillis returns the time until the window resets in milliseconds
func (d RateDecision) ResetInMillis() int64 {
	return d.ResetIn.Milliseconds()
}

// Outcome is what Evaluate hands back to a gateway: either a verdict or a
// rate-limit denial
type Outcome struct {
	Verdict     *RiskVerdict
	RateLimited bool
	Rate        RateDecision
}

// SecurityEvent is the audit record written for non-ALLOWED verdicts
type SecurityEvent struct {
	ID         string     `json:"id"`
	EventType  string     `json:"event_type"`
	Email      string     `json:"email"`
	ClientIP   string     `json:"ip_address"`
	Domain     string     `json:"domain"`
	RiskScore  int        `json:"score"`
	Reasons    []string   `json:"reasons"`
	Reputation Reputation `json:"reputation"`
	OccurredAt time.Time  `json:"occurred_at"`
}
