package gateway

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/ports"
	"go.uber.org/zap"
)

// SMTPConfig holds the SMTP gateway settings
type SMTPConfig struct {
	ListenAddress string
	Domain        string
	// DeferChallenge answers CHALLENGE verdicts with a temporary failure
	// instead of accepting the sender.
	DeferChallenge bool
	Timeout        time.Duration
}

// SMTPGateway screens MAIL FROM senders before a message is accepted.
// Message bodies are read and discarded.
type SMTPGateway struct {
	engine ports.Evaluator
	logger *zap.Logger
	cfg    SMTPConfig
	server *smtp.Server
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(engine ports.Evaluator, logger *zap.Logger, cfg SMTPConfig) *SMTPGateway {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":2525"
	}
	if cfg.Domain == "" {
		cfg.Domain = "localhost"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPGateway{
		engine: engine,
		logger: logger,
		cfg:    cfg,
	}
}

// Start starts the SMTP gateway
func (g *SMTPGateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})

	g.server.Addr = g.cfg.ListenAddress
	g.server.Domain = g.cfg.Domain
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 10 * 1024 * 1024
	g.server.MaxRecipients = 50

	g.logger.Info("SMTP gateway starting", zap.String("address", g.cfg.ListenAddress))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the SMTP gateway
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// screen maps a sender verdict onto an SMTP reply. A nil error accepts the
// sender.
func (g *SMTPGateway) screen(sender, clientIP string) error {
	// Null reverse-path is used for bounces.
	if sender == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.Timeout)
	defer cancel()

	outcome, err := g.engine.Evaluate(ctx, sender, clientIP)
	if err != nil {
		g.logger.Error("Failed to evaluate sender", zap.String("client", clientIP), zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Sender verification temporarily unavailable",
		}
	}

	if outcome.RateLimited {
		return &smtp.SMTPError{
			Code:         421,
			EnhancedCode: smtp.EnhancedCode{4, 7, 0},
			Message:      "Too many sender checks, try again later",
		}
	}

	verdict := outcome.Verdict
	switch {
	case verdict.Status == core.StatusBlocked:
		g.logger.Info("Rejecting sender",
			zap.String("domain", verdict.Domain),
			zap.Int("score", verdict.RiskScore),
			zap.Strings("reasons", verdict.Reasons))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Sender address rejected: " + strings.Join(verdict.Reasons, "; "),
		}
	case verdict.Status == core.StatusChallenge && g.cfg.DeferChallenge:
		return &smtp.SMTPError{
			Code:         450,
			EnhancedCode: smtp.EnhancedCode{4, 7, 1},
			Message:      "Sender address deferred: " + strings.Join(verdict.Reasons, "; "),
		}
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	clientIP := unknownClient
	if c != nil && c.Conn() != nil {
		clientIP = remoteHost(c.Conn().RemoteAddr())
	}
	return &smtpSession{
		gateway:  b.gateway,
		clientIP: clientIP,
	}, nil
}

func remoteHost(addr net.Addr) string {
	if addr == nil {
		return unknownClient
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil || host == "" {
		return unknownClient
	}
	return host
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	gateway    *SMTPGateway
	clientIP   string
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail screens the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	if err := s.gateway.screen(from, s.clientIP); err != nil {
		return err
	}
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data discards the message body
func (s *smtpSession) Data(r io.Reader) error {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		s.gateway.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	s.gateway.logger.Debug("Discarded message body",
		zap.String("sender", s.sender),
		zap.Int("recipients", len(s.recipients)),
		zap.Int64("bytes", n))
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
