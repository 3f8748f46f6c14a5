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

// DefaultAbuseIPDBURL is the v2 API base
const DefaultAbuseIPDBURL = "https://api.abuseipdb.com/api/v2"

type abuseIPDBCheck struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		TotalReports         int    `json:"totalReports"`
	} `json:"data"`
}

// AbuseIPDBClient reads abuse confidence scores from AbuseIPDB
type AbuseIPDBClient struct {
	apiKey     string
	baseURL    string
	maxAgeDays int
	client     *http.Client
	logger     *zap.Logger
}

// NewAbuseIPDBClient creates a client. Without an API key every lookup
// returns core.ErrNotConfigured.
func NewAbuseIPDBClient(apiKey, baseURL string, maxAgeDays int, client *http.Client, logger *zap.Logger) *AbuseIPDBClient {
	if baseURL == "" {
		baseURL = DefaultAbuseIPDBURL
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 90
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AbuseIPDBClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxAgeDays: maxAgeDays,
		client:     client,
		logger:     logger,
	}
}

// AbuseConfidence implements core.IPReputationFeed
func (c *AbuseIPDBClient) AbuseConfidence(ctx context.Context, ip string) (int, error) {
	if c.apiKey == "" {
		return 0, core.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("ipAddress", ip)
	q.Set("maxAgeInDays", fmt.Sprint(c.maxAgeDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build AbuseIPDB request: %w", err)
	}
	req.Header.Set("Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("AbuseIPDB request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("AbuseIPDB returned status %d", resp.StatusCode)
	}

	var body abuseIPDBCheck
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode AbuseIPDB response: %w", err)
	}

	c.logger.Debug("AbuseIPDB check",
		zap.String("ip", ip),
		zap.Int("confidence", body.Data.AbuseConfidenceScore),
		zap.Int("reports", body.Data.TotalReports))
	return body.Data.AbuseConfidenceScore, nil
}
