package factory

import (
	"fmt"
	"os"

	"github.com/mikey/email-risk/internal/adapters/gateway"
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/ports"
	"go.uber.org/zap"
)

// GatewayFactory creates gateways based on configuration
type GatewayFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	engine *core.RiskEngine
}

// NewGatewayFactory creates a new gateway factory
func NewGatewayFactory(cfg *config.Config, logger *zap.Logger, engine *core.RiskEngine) *GatewayFactory {
	return &GatewayFactory{
		cfg:    cfg,
		logger: logger,
		engine: engine,
	}
}

// CreateGateway creates a gateway based on the configuration
func (f *GatewayFactory) CreateGateway() (ports.Gateway, error) {
	server, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch server.GatewayType {
	case "http":
		return gateway.NewHTTPGateway(f.engine, f.logger, gateway.HTTPConfig{
			ListenAddress:     server.ListenAddress,
			TrustProxyHeaders: server.TrustProxyHeaders,
			RequestTimeout:    server.RequestTimeout,
			AllowedOrigins:    server.AllowedOrigins,
		}), nil
	case "smtp":
		return gateway.NewSMTPGateway(f.engine, f.logger, gateway.SMTPConfig{
			ListenAddress:  server.SMTPAddress,
			Domain:         server.SMTPDomain,
			DeferChallenge: server.SMTPDeferChallenge,
			Timeout:        server.RequestTimeout,
		}), nil
	case "cli":
		return f.CreateCLIGateway(), nil
	default:
		return nil, fmt.Errorf("unsupported gateway type: %s", server.GatewayType)
	}
}

// CreateCLIGateway creates a CLI gateway printing to stdout
func (f *GatewayFactory) CreateCLIGateway() *gateway.CLIGateway {
	return gateway.NewCLIGateway(
		f.engine,
		f.logger,
		os.Stdout,
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetBool("cli.json"),
	)
}
