package factory

import (
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// EngineDeps are the adapters the risk engine is assembled from. Limiter,
// cache and events may be nil.
type EngineDeps struct {
	Limiter    core.RateLimiter
	Cache      core.CacheRepository
	Heuristics core.HeuristicEvaluator
	Collectors core.Collectors
	Events     core.SecurityEventSink
}

// EngineFactory assembles the risk engine from configuration and adapters
type EngineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEngineFactory creates a new engine factory
func NewEngineFactory(cfg *config.Config, logger *zap.Logger) *EngineFactory {
	return &EngineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEngine builds a risk engine over deps
func (f *EngineFactory) CreateEngine(deps EngineDeps) (*core.RiskEngine, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, err
	}
	collectorCfg, err := f.cfg.GetCollectors()
	if err != nil {
		return nil, err
	}

	return core.NewRiskEngine(
		deps.Limiter,
		deps.Cache,
		deps.Heuristics,
		deps.Collectors,
		deps.Events,
		f.logger,
		core.EngineOptions{
			CacheEnabled:     cacheCfg.Enabled,
			CacheTTL:         cacheCfg.TTL,
			CollectorTimeout: collectorCfg.Timeout,
			Policy:           f.cfg.GetPolicy(),
		},
	), nil
}
