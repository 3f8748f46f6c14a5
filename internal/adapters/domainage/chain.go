package domainage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/email-risk/internal/core"
)

// Chain tries each resolver in turn and returns the first date found
type Chain struct {
	resolvers []core.DomainAgeResolver
}

// NewChain creates a chain; nil resolvers are skipped
func NewChain(resolvers ...core.DomainAgeResolver) *Chain {
	c := &Chain{}
	for _, r := range resolvers {
		if r != nil {
			c.resolvers = append(c.resolvers, r)
		}
	}
	return c
}

// RegistrationDate implements core.DomainAgeResolver
func (c *Chain) RegistrationDate(ctx context.Context, domain string) (time.Time, error) {
	var errs []error
	for _, r := range c.resolvers {
		registered, err := r.RegistrationDate(ctx, domain)
		if err == nil {
			return registered, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return time.Time{}, fmt.Errorf("no domain age resolver configured: %w", core.ErrNotConfigured)
	}
	return time.Time{}, errors.Join(errs...)
}
