package factory

import (
	"fmt"
	"net/http"

	"github.com/mikey/email-risk/internal/adapters/dnsresolver"
	"github.com/mikey/email-risk/internal/adapters/domainage"
	"github.com/mikey/email-risk/internal/adapters/reputation"
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/core"
	"go.uber.org/zap"
)

// CollectorFactory creates the external probes used by the engine
type CollectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCollectorFactory creates a new collector factory
func NewCollectorFactory(cfg *config.Config, logger *zap.Logger) *CollectorFactory {
	return &CollectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCollectors wires DNS, domain age and reputation adapters. Feeds
// without credentials are left nil so their checks report "not checked".
func (f *CollectorFactory) CreateCollectors() (core.Collectors, error) {
	cc, err := f.cfg.GetCollectors()
	if err != nil {
		return core.Collectors{}, err
	}
	client := &http.Client{Timeout: cc.Timeout}

	var collectors core.Collectors

	switch cc.DNSMode {
	case "doh":
		resolver := dnsresolver.NewDoHResolver(cc.DoHURL, client, f.logger)
		collectors.MX = resolver
		collectors.Addresses = resolver
	case "wire":
		resolver := dnsresolver.NewWireResolver(cc.Nameserver, cc.Timeout, f.logger)
		collectors.MX = resolver
		collectors.Addresses = resolver
	default:
		return core.Collectors{}, fmt.Errorf("unsupported dns mode: %s", cc.DNSMode)
	}

	ageSources := []core.DomainAgeResolver{domainage.NewRDAPClient(cc.RDAPEndpoints, client, f.logger)}
	if cc.WhoisEnabled {
		ageSources = append(ageSources, domainage.NewWhoisResolver(f.logger))
	}
	collectors.DomainAge = domainage.NewChain(ageSources...)

	if cc.VirusTotalAPIKey != "" {
		collectors.DomainFeed = reputation.NewVirusTotalClient(cc.VirusTotalAPIKey, cc.VirusTotalBaseURL, client, f.logger)
	} else {
		f.logger.Warn("VirusTotal API key not set, domain reputation will not be checked")
	}

	if cc.AbuseIPDBAPIKey != "" {
		collectors.IPFeed = reputation.NewAbuseIPDBClient(cc.AbuseIPDBAPIKey, cc.AbuseIPDBBaseURL, cc.AbuseIPDBMaxAge, client, f.logger)
	} else {
		f.logger.Warn("AbuseIPDB API key not set, IP reputation will not be checked")
	}

	if cc.ASNDatabasePath != "" {
		db, err := reputation.OpenASNDatabase(cc.ASNDatabasePath)
		if err != nil {
			return core.Collectors{}, err
		}
		collectors.NetworkOwner = db
	}

	return collectors, nil
}
