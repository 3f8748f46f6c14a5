package heuristics

import (
	"strings"

	"go.uber.org/zap"
)

// DomainSet provides exact-match lookups over a list of domains
type DomainSet struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewDomainSet creates a set from a configured domain list
func NewDomainSet(name string, domains []string, logger *zap.Logger) *DomainSet {
	// Normalize domains (lowercase)
	set := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		set[domain] = struct{}{}
	}

	if logger != nil {
		logger.Debug("Initialized domain set", zap.String("set", name), zap.Int("size", len(set)))
	}

	return &DomainSet{
		domains: set,
		logger:  logger,
	}
}

// Contains checks if the domain is in the set
func (s *DomainSet) Contains(domain string) bool {
	if len(s.domains) == 0 {
		return false
	}

	_, ok := s.domains[strings.ToLower(domain)]
	return ok
}

// Len returns the number of distinct domains
func (s *DomainSet) Len() int {
	return len(s.domains)
}
