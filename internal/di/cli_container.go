package di

import (
	"flag"

	"github.com/spf13/viper"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-risk/internal/adapters/gateway"
	"github.com/mikey/email-risk/internal/config"
	"github.com/mikey/email-risk/internal/factory"
	"github.com/mikey/email-risk/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Collector flags
	DNSMode          string
	Nameserver       string
	VirusTotalAPIKey string
	AbuseIPDBAPIKey  string
	ASNDatabasePath  string
	DisableWhois     bool

	// Input and output flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string

	// Addresses are the positional arguments
	Addresses []string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Collector flags
	flag.StringVar(&flags.DNSMode, "dns", "doh", "DNS transport (doh, wire)")
	flag.StringVar(&flags.Nameserver, "nameserver", "8.8.8.8:53", "Nameserver for wire DNS")
	flag.StringVar(&flags.VirusTotalAPIKey, "virustotal-api-key", "", "API key for VirusTotal")
	flag.StringVar(&flags.AbuseIPDBAPIKey, "abuseipdb-api-key", "", "API key for AbuseIPDB")
	flag.StringVar(&flags.ASNDatabasePath, "asn-db", "", "Path to a GeoLite2-ASN database")
	flag.BoolVar(&flags.DisableWhois, "no-whois", false, "Skip the WHOIS fallback for domain age")

	// Input and output flags
	flag.StringVar(&flags.InputFile, "file", "", "File with one address per line (use stdin if no addresses are given)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and detailed verdicts")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.BoolVar(&flags.JSONOutput, "json", false, "Print verdicts as JSON")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	flags.Addresses = flag.Args()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			v := viper.New()
			v.SetConfigFile(flags.ConfigFile)
			if err := config.LoadInto(v); err != nil {
				return nil, err
			}
			v.Set("server.gateway_type", "cli")
			v.Set("cli.verbose", flags.Verbose)
			v.Set("cli.json", flags.JSONOutput)
			logger.Info("Loaded configuration from file", zap.String("file", v.ConfigFileUsed()))
			return config.NewFromViper(v), nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register CLI gateway
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.GatewayFactory) *gateway.CLIGateway {
		return f.CreateCLIGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.gateway_type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json", flags.JSONOutput)

	// A one-shot run has a single client
	v.Set("ratelimit.type", "none")
	v.Set("cache.enabled", false)
	v.Set("audit.type", "none")

	// Set collector configuration
	v.Set("dns.mode", flags.DNSMode)
	v.Set("dns.nameserver", flags.Nameserver)
	v.Set("virustotal.api_key", flags.VirusTotalAPIKey)
	v.Set("abuseipdb.api_key", flags.AbuseIPDBAPIKey)
	v.Set("geoip.asn_db_path", flags.ASNDatabasePath)
	v.Set("whois.enabled", !flags.DisableWhois)

	return config.NewFromViper(v)
}
