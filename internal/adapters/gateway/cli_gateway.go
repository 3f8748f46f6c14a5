package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/ports"
	"go.uber.org/zap"
)

// CLIGateway evaluates addresses given on the command line and prints the
// verdicts
type CLIGateway struct {
	engine  ports.Evaluator
	logger  *zap.Logger
	out     io.Writer
	verbose bool
	asJSON  bool
}

// NewCLIGateway creates a new CLI gateway writing to out
func NewCLIGateway(engine ports.Evaluator, logger *zap.Logger, out io.Writer, verbose, asJSON bool) *CLIGateway {
	return &CLIGateway{
		engine:  engine,
		logger:  logger,
		out:     out,
		verbose: verbose,
		asJSON:  asJSON,
	}
}

// Check evaluates one address as the local client and prints the verdict
func (g *CLIGateway) Check(ctx context.Context, email string) (*core.Outcome, error) {
	g.logger.Debug("Checking email", zap.String("email", email))

	startTime := time.Now()
	outcome, err := g.engine.Evaluate(ctx, email, "cli")
	if err != nil {
		g.logger.Error("Failed to evaluate email", zap.Error(err))
		fmt.Fprintf(g.out, "Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	if outcome.RateLimited {
		fmt.Fprintf(g.out, "Rate limited, retry in %v\n", outcome.Rate.ResetIn)
		return outcome, nil
	}

	if g.asJSON {
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return outcome, enc.Encode(outcome.Verdict)
	}

	v := outcome.Verdict
	fmt.Fprintf(g.out, "\n=== %s ===\n", v.Email)
	fmt.Fprintf(g.out, "Status: %s\n", v.Status)
	fmt.Fprintf(g.out, "Risk score: %d\n", v.RiskScore)
	fmt.Fprintf(g.out, "Reasons: %s\n", strings.Join(v.Reasons, "; "))
	fmt.Fprintf(g.out, "Recommended action: %s\n", v.RecommendedAction)

	if g.verbose {
		fmt.Fprintf(g.out, "Domain: %s\n", v.Domain)
		fmt.Fprintf(g.out, "MX valid: %t\n", v.MXValid)
		if v.DomainAgeDays != nil {
			fmt.Fprintf(g.out, "Domain age: %d days\n", *v.DomainAgeDays)
		} else {
			fmt.Fprintf(g.out, "Domain age: unknown\n")
		}
		fmt.Fprintf(g.out, "Domain reputation: %s\n", v.Reputation.Domain)
		fmt.Fprintf(g.out, "IP reputation: %s\n", v.Reputation.IP)
		if v.Reputation.ASN != "" {
			fmt.Fprintf(g.out, "Network: %s\n", v.Reputation.ASN)
		}
		fmt.Fprintf(g.out, "Processing time: %v\n", duration)
	}

	return outcome, nil
}

// Start is a no-op for the CLI gateway
func (g *CLIGateway) Start() error {
	return nil
}

// Stop is a no-op for the CLI gateway
func (g *CLIGateway) Stop() error {
	return nil
}
