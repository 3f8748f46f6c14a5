package factory

import (
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/heuristics"
	"go.uber.org/zap"
)

// HeuristicsFactory creates the static check evaluator
type HeuristicsFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHeuristicsFactory creates a new heuristics factory
func NewHeuristicsFactory(cfg *config.Config, logger *zap.Logger) *HeuristicsFactory {
	return &HeuristicsFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEvaluator builds an evaluator from the configured lists. Any list
// left empty in configuration falls back to the built-in one.
func (f *HeuristicsFactory) CreateEvaluator() *heuristics.Evaluator {
	lists := heuristics.DefaultLists()
	overrides := f.cfg.GetLists()

	if len(overrides.DisposableDomains) > 0 {
		lists.DisposableDomains = overrides.DisposableDomains
	}
	if len(overrides.SuspiciousTLDs) > 0 {
		lists.SuspiciousTLDs = overrides.SuspiciousTLDs
	}
	if len(overrides.Brands) > 0 {
		lists.Brands = overrides.Brands
	}

	f.logger.Info("Loaded curated lists",
		zap.Int("disposable_domains", len(lists.DisposableDomains)),
		zap.Int("suspicious_tlds", len(lists.SuspiciousTLDs)),
		zap.Int("brands", len(lists.Brands)))

	return heuristics.NewEvaluator(lists, f.logger)
}
