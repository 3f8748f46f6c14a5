package reputation

import (
	"fmt"
	"net"

	"github.com/mikey/email-risk/internal/core"
	"github.com/oschwald/geoip2-golang"
)

// ASNDatabase names the network behind an address using a GeoLite2 ASN file
type ASNDatabase struct {
	reader *geoip2.Reader
}

// OpenASNDatabase opens a GeoLite2-ASN .mmdb file
func OpenASNDatabase(path string) (*ASNDatabase, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ASN database: %w", err)
	}
	return &ASNDatabase{reader: reader}, nil
}

// Owner implements core.NetworkOwnerLookup
func (d *ASNDatabase) Owner(ipAddress string) (string, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address: %s", ipAddress)
	}

	record, err := d.reader.ASN(ip)
	if err != nil {
		return "", err
	}
	if record.AutonomousSystemNumber == 0 {
		return "", fmt.Errorf("no ASN for %s: %w", ipAddress, core.ErrNotFound)
	}
	return fmt.Sprintf("AS%d %s", record.AutonomousSystemNumber, record.AutonomousSystemOrganization), nil
}

// Close releases the database
func (d *ASNDatabase) Close() error {
	return d.reader.Close()
}
