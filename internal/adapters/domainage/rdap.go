// Package domainage resolves domain registration dates through RDAP with a
// WHOIS fallback.
package domainage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// DefaultRDAPEndpoints are tried in order
var DefaultRDAPEndpoints = []string{
	"https://rdap.registro.br/domain",
	"https://rdap.org/domain",
}

type rdapEvent struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
}

type rdapDomain struct {
	LDHName string      `json:"ldhName"`
	Events  []rdapEvent `json:"events"`
}

// RDAPClient looks up the registration event of a domain
type RDAPClient struct {
	endpoints []string
	client    *http.Client
	logger    *zap.Logger
}

// NewRDAPClient creates a client over the given endpoint bases
func NewRDAPClient(endpoints []string, client *http.Client, logger *zap.Logger) *RDAPClient {
	if len(endpoints) == 0 {
		endpoints = DefaultRDAPEndpoints
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RDAPClient{endpoints: endpoints, client: client, logger: logger}
}

// RegistrationDate returns the registration date reported by the first
// endpoint that knows the domain
func (c *RDAPClient) RegistrationDate(ctx context.Context, domain string) (time.Time, error) {
	var errs []error
	for _, endpoint := range c.endpoints {
		registered, err := c.fetch(ctx, endpoint, domain)
		if err == nil {
			return registered, nil
		}
		c.logger.Debug("RDAP lookup failed",
			zap.String("endpoint", endpoint),
			zap.String("domain", domain),
			zap.Error(err))
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return time.Time{}, fmt.Errorf("RDAP lookup for %s failed: %w", domain, errors.Join(errs...))
}

func (c *RDAPClient) fetch(ctx context.Context, endpoint, domain string) (time.Time, error) {
	url := strings.TrimRight(endpoint, "/") + "/" + domain
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to build RDAP request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("RDAP request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return time.Time{}, fmt.Errorf("%s: %w", endpoint, core.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("RDAP request to %s returned status %d", endpoint, resp.StatusCode)
	}

	var body rdapDomain
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode RDAP response: %w", err)
	}

	for _, ev := range body.Events {
		if ev.EventAction != "registration" {
			continue
		}
		registered, err := time.Parse(time.RFC3339, ev.EventDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid registration date %q: %w", ev.EventDate, err)
		}
		return registered, nil
	}
	return time.Time{}, fmt.Errorf("%s has no registration event: %w", endpoint, core.ErrNotFound)
}
