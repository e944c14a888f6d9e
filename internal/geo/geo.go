// Package geo provides optional GeoIP country lookups for the roster dump
// and status dashboard. Grounded on the teacher's GeoIPService in
// geoip_service.go: a disabled no-op when no database path is configured,
// an open MaxMind reader otherwise.
package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Lookup resolves IPs to country names, or is a no-op when disabled.
type Lookup struct {
	db      *geoip2.Reader
	enabled bool
}

// Open opens the MaxMind database at dbPath. An empty path returns a
// disabled Lookup rather than an error, so GeoIP remains fully optional.
func Open(dbPath string) (*Lookup, error) {
	if dbPath == "" {
		return &Lookup{enabled: false}, nil
	}
	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("geo: open %s: %w", dbPath, err)
	}
	return &Lookup{db: db, enabled: true}, nil
}

// Close releases the underlying database, if open.
func (l *Lookup) Close() error {
	if !l.enabled {
		return nil
	}
	return l.db.Close()
}

// Country returns the two-letter ISO country code for ip, or "" if GeoIP is
// disabled or the lookup fails.
func (l *Lookup) Country(ip net.IP) string {
	if !l.enabled {
		return ""
	}
	rec, err := l.db.Country(ip)
	if err != nil {
		return ""
	}
	return rec.Country.IsoCode
}
