package factory

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/mikey/email-risk/internal/adapters/audit"
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// AuditFactory creates security event sinks based on configuration
type AuditFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewAuditFactory creates a new audit factory
func NewAuditFactory(cfg *config.Config, logger *zap.Logger) *AuditFactory {
	return &AuditFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEventSink creates the configured sink behind an asynchronous
// dispatcher. The "none" type disables auditing and yields a nil sink.
func (f *AuditFactory) CreateEventSink() (core.SecurityEventSink, error) {
	auditCfg := f.cfg.GetAudit()

	var sink core.SecurityEventSink
	switch auditCfg.Type {
	case "none":
		return nil, nil
	case "log":
		sink = audit.NewLogSink(f.logger)
	case "postgres":
		db, err := sql.Open("postgres", auditCfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		pg := audit.NewPostgresSink(db, f.logger)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate security_logs: %w", err)
		}
		sink = pg
	case "http":
		if auditCfg.HTTPURL == "" {
			return nil, fmt.Errorf("audit.http_url is required for the http audit type")
		}
		sink = audit.NewHTTPSink(auditCfg.HTTPURL, auditCfg.HTTPKey, &http.Client{Timeout: 10 * time.Second}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported audit type: %s", auditCfg.Type)
	}

	return audit.NewDispatcher(sink, auditCfg.QueueSize, f.logger), nil
}
