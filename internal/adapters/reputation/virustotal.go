// Package reputation queries external threat-intelligence feeds.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// DefaultVirusTotalURL is the v3 API base
const DefaultVirusTotalURL = "https://www.virustotal.com/api/v3"

type virusTotalDomain struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// VirusTotalClient reads domain detection stats from VirusTotal
type VirusTotalClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewVirusTotalClient creates a client. Without an API key every lookup
// returns core.ErrNotConfigured.
func NewVirusTotalClient(apiKey, baseURL string, client *http.Client, logger *zap.Logger) *VirusTotalClient {
	if baseURL == "" {
		baseURL = DefaultVirusTotalURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &VirusTotalClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// DomainReport implements core.DomainReputationFeed
func (c *VirusTotalClient) DomainReport(ctx context.Context, domain string) (*core.DomainReport, error) {
	if c.apiKey == "" {
		return nil, core.ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domains/"+url.PathEscape(domain), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build VirusTotal request: %w", err)
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("VirusTotal request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("VirusTotal has no record of %s: %w", domain, core.ErrNotFound)
	default:
		return nil, fmt.Errorf("VirusTotal returned status %d", resp.StatusCode)
	}

	var body virusTotalDomain
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode VirusTotal response: %w", err)
	}

	stats := body.Data.Attributes.LastAnalysisStats
	c.logger.Debug("VirusTotal domain report",
		zap.String("domain", domain),
		zap.Int("malicious", stats.Malicious),
		zap.Int("suspicious", stats.Suspicious))

	return &core.DomainReport{
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Harmless:   stats.Harmless,
		Undetected: stats.Undetected,
	}, nil
}
