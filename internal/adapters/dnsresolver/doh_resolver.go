// Package dnsresolver resolves MX and A records either through a
// DNS-over-HTTPS JSON endpoint or over the classic DNS wire protocol.
package dnsresolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// DefaultDoHURL is Google's JSON resolver
const DefaultDoHURL = "https://dns.google/resolve"

const (
	typeA  = 1
	typeMX = 15

	rcodeNoError  = 0
	rcodeNXDomain = 3
)

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// DoHResolver queries a DNS-over-HTTPS endpoint speaking the JSON API
type DoHResolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewDoHResolver creates a resolver. An empty baseURL selects DefaultDoHURL.
func NewDoHResolver(baseURL string, client *http.Client, logger *zap.Logger) *DoHResolver {
	if baseURL == "" {
		baseURL = DefaultDoHURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DoHResolver{baseURL: baseURL, client: client, logger: logger}
}

// LookupMX returns the mail exchangers of a domain. A null MX ("0 .") and
// NXDOMAIN both yield an empty result.
func (r *DoHResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	answers, err := r.query(ctx, domain, "MX")
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, a := range answers {
		if a.Type != typeMX {
			continue
		}
		fields := strings.Fields(a.Data)
		if len(fields) != 2 {
			continue
		}
		host := strings.TrimSuffix(fields[1], ".")
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts, nil
}

// LookupA returns the IPv4 addresses of a domain
func (r *DoHResolver) LookupA(ctx context.Context, domain string) ([]string, error) {
	answers, err := r.query(ctx, domain, "A")
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, a := range answers {
		if a.Type == typeA {
			addrs = append(addrs, a.Data)
		}
	}
	return addrs, nil
}

func (r *DoHResolver) query(ctx context.Context, domain, qtype string) ([]dohAnswer, error) {
	q := url.Values{}
	q.Set("name", domain)
	q.Set("type", qtype)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH request failed with status %d", resp.StatusCode)
	}

	var body dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode DoH response: %w", err)
	}

	switch body.Status {
	case rcodeNoError:
		return body.Answer, nil
	case rcodeNXDomain:
		r.logger.Debug("Domain does not exist", zap.String("domain", domain), zap.String("type", qtype))
		return nil, nil
	default:
		return nil, fmt.Errorf("DoH query for %s %s returned rcode %d", domain, qtype, body.Status)
	}
}
