package di

import (
	"go.uber.org/dig"

	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"github.com/mikey/email-risk/internal/factory"
	"github.com/mikey/email-risk/internal/logging"
	"github.com/mikey/email-risk/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register gateway
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GatewayFactory) (ports.Gateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideEngine registers the adapter factories and the risk engine. It
// expects *config.Config and *zap.Logger to be provided already.
func provideEngine(container *dig.Container) error {
	// Register factories
	for _, constructor := range []interface{}{
		factory.NewCacheFactory,
		factory.NewRateLimitFactory,
		factory.NewHeuristicsFactory,
		factory.NewCollectorFactory,
		factory.NewAuditFactory,
		factory.NewEngineFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return err
	}

	// Register rate limiter
	if err := container.Provide(func(f *factory.RateLimitFactory) (core.RateLimiter, error) {
		return f.CreateRateLimiter()
	}); err != nil {
		return err
	}

	// Register static checks
	if err := container.Provide(func(f *factory.HeuristicsFactory) core.HeuristicEvaluator {
		return f.CreateEvaluator()
	}); err != nil {
		return err
	}

	// Register external probes
	if err := container.Provide(func(f *factory.CollectorFactory) (core.Collectors, error) {
		return f.CreateCollectors()
	}); err != nil {
		return err
	}

	// Register security event sink
	if err := container.Provide(func(f *factory.AuditFactory) (core.SecurityEventSink, error) {
		return f.CreateEventSink()
	}); err != nil {
		return err
	}

	// Register risk engine
	return container.Provide(func(
		f *factory.EngineFactory,
		limiter core.RateLimiter,
		cache core.CacheRepository,
		heuristics core.HeuristicEvaluator,
		collectors core.Collectors,
		events core.SecurityEventSink,
	) (*core.RiskEngine, error) {
		return f.CreateEngine(factory.EngineDeps{
			Limiter:    limiter,
			Cache:      cache,
			Heuristics: heuristics,
			Collectors: collectors,
			Events:     events,
		})
	})
}
