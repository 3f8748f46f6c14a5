package audit

import (
	"context"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// LogSink writes security events to the structured log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-backed sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Record implements core.SecurityEventSink
func (s *LogSink) Record(_ context.Context, event *core.SecurityEvent) error {
	s.logger.Info("Security event",
		zap.String("id", event.ID),
		zap.String("event_type", event.EventType),
		zap.String("email", event.Email),
		zap.String("ip_address", event.ClientIP),
		zap.String("domain", event.Domain),
		zap.Int("score", event.RiskScore),
		zap.Strings("reasons", event.Reasons),
		zap.String("domain_reputation", event.Reputation.Domain),
		zap.String("ip_reputation", event.Reputation.IP),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
