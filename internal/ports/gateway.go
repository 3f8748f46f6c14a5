package ports

import (
	"context"

	"github.com/mikey/email-risk/internal/core"
)

// Evaluator assesses an email address on behalf of a client
type Evaluator interface {
	// Evaluate returns a verdict or a rate-limit denial
	Evaluate(ctx context.Context, email, clientID string) (*core.Outcome, error)

	// Admit counts a request against the client's budget before any input
	// is looked at
	Admit(ctx context.Context, clientID string) core.RateDecision

	// Assess returns the verdict for a client that was already admitted
	Assess(ctx context.Context, email, clientID string) (*core.RiskVerdict, error)
}

// Gateway defines the interface for a front door to the risk engine
type Gateway interface {
	// Start starts the gateway service
	Start() error

	// Stop stops the gateway service
	Stop() error
}
