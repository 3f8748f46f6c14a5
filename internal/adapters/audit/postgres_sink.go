// Package audit delivers security events to durable storage.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// PostgresSink writes security events to the security_logs table
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSink creates a PostgreSQL-backed event sink
func NewPostgresSink(db *sql.DB, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{db: db, logger: logger}
}

// Migrate creates the security_logs table if it doesn't exist.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS security_logs (
			id           VARCHAR(36) PRIMARY KEY,
			event_type   VARCHAR(64) NOT NULL,
			email        TEXT NOT NULL,
			ip_address   TEXT NOT NULL DEFAULT '',
			domain       TEXT NOT NULL,
			score        INTEGER NOT NULL CHECK (score >= 0 AND score <= 100),
			reasons      JSONB NOT NULL DEFAULT '[]',
			reputation   JSONB NOT NULL DEFAULT '{}',
			occurred_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		ALTER TABLE security_logs ALTER COLUMN ip_address TYPE TEXT;

		CREATE INDEX IF NOT EXISTS idx_security_logs_domain
			ON security_logs (domain, occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_security_logs_blocks
			ON security_logs (occurred_at DESC) WHERE event_type = 'email_validation_blocked';
	`)
	return err
}

// Record implements core.SecurityEventSink
func (s *PostgresSink) Record(ctx context.Context, event *core.SecurityEvent) error {
	reasonsJSON, err := json.Marshal(event.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}
	reputationJSON, err := json.Marshal(event.Reputation)
	if err != nil {
		return fmt.Errorf("failed to marshal reputation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO security_logs (id, event_type, email, ip_address, domain, score, reasons, reputation, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.ID,
		event.EventType,
		event.Email,
		event.ClientIP,
		event.Domain,
		event.RiskScore,
		reasonsJSON,
		reputationJSON,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record security event: %w", err)
	}
	return nil
}

// Stop closes the database handle
func (s *PostgresSink) Stop() error {
	return s.db.Close()
}
