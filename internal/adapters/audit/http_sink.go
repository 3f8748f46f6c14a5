package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// securityLogRow matches the columns of a security_logs table exposed over
// PostgREST. Verdict specifics travel in the details JSON column.
type securityLogRow struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Email     string          `json:"email"`
	IPAddress string          `json:"ip_address"`
	Details   securityDetails `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}

type securityDetails struct {
	Score      int             `json:"score"`
	Reasons    []string        `json:"reasons"`
	Domain     string          `json:"domain"`
	Reputation core.Reputation `json:"reputation"`
}

func newSecurityLogRow(event *core.SecurityEvent) securityLogRow {
	return securityLogRow{
		ID:        event.ID,
		EventType: event.EventType,
		Email:     event.Email,
		IPAddress: event.ClientIP,
		Details: securityDetails{
			Score:      event.RiskScore,
			Reasons:    event.Reasons,
			Domain:     event.Domain,
			Reputation: event.Reputation,
		},
		CreatedAt: event.OccurredAt,
	}
}

// HTTPSink posts security events as JSON rows to a REST table endpoint,
// such as a PostgREST or Supabase security_logs route.
type HTTPSink struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPSink creates a sink posting to url. When apiKey is set it is sent
// both as the apikey header and as a bearer token.
func NewHTTPSink(url, apiKey string, client *http.Client, logger *zap.Logger) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{
		url:    strings.TrimRight(url, "/"),
		apiKey: apiKey,
		client: client,
		logger: logger,
	}
}

// Record implements core.SecurityEventSink
func (s *HTTPSink) Record(ctx context.Context, event *core.SecurityEvent) error {
	if s.url == "" {
		return core.ErrNotConfigured
	}

	payload, err := json.Marshal(newSecurityLogRow(event))
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("audit request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
