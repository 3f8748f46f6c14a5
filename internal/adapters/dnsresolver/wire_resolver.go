package dnsresolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// DefaultNameserver is used when none is configured
const DefaultNameserver = "8.8.8.8:53"

// WireResolver queries a recursive nameserver directly
type WireResolver struct {
	server string
	udp    *dns.Client
	tcp    *dns.Client
	logger *zap.Logger
}

// NewWireResolver creates a resolver against host:port
func NewWireResolver(server string, timeout time.Duration, logger *zap.Logger) *WireResolver {
	if server == "" {
		server = DefaultNameserver
	}
	return &WireResolver{
		server: server,
		udp:    &dns.Client{Net: "udp", Timeout: timeout},
		tcp:    &dns.Client{Net: "tcp", Timeout: timeout},
		logger: logger,
	}
}

// LookupMX returns the mail exchangers of a domain, skipping null MX records
func (r *WireResolver) LookupMX(ctx context.Context, domain string) ([]string, error) {
	resp, err := r.exchange(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, rr := range resp.Answer {
		mx, ok := rr.(*dns.MX)
		if !ok {
			continue
		}
		if host := strings.TrimSuffix(mx.Mx, "."); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts, nil
}

// LookupA returns the IPv4 addresses of a domain
func (r *WireResolver) LookupA(ctx context.Context, domain string) ([]string, error) {
	resp, err := r.exchange(ctx, domain, dns.TypeA)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	return addrs, nil
}

func (r *WireResolver) exchange(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), qtype)
	m.RecursionDesired = true

	resp, _, err := r.udp.ExchangeContext(ctx, m, r.server)
	if err == nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, m, r.server)
	}
	if err != nil {
		return nil, fmt.Errorf("DNS query for %s %s failed: %w", domain, dns.TypeToString[qtype], err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp, nil
	case dns.RcodeNameError:
		r.logger.Debug("Domain does not exist", zap.String("domain", domain), zap.String("type", dns.TypeToString[qtype]))
		return &dns.Msg{}, nil
	default:
		return nil, fmt.Errorf("DNS query for %s %s returned %s", domain, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
}
