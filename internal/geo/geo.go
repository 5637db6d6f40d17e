// Package geo resolves client IP addresses to coarse geographic metadata
// using MaxMind-format (mmdb) databases. Both the city and ASN databases are
// optional and independent: a deployment missing one still serves whatever
// the other provides, and a deployment with neither degrades every lookup to
// a zero-value GeoData rather than failing ingestion.
package geo

import (
	"net"
	"sync"

	"github.com/oschwald/maxminddb-golang"
)

// Data is the enrichment derived from a single IP address. ASN carries the
// autonomous system's organization name, not its numeric identifier — that
// is what the "asn" attribute has always named in this schema.
type Data struct {
	Country   string
	ASN       string
	Longitude *float64
	Latitude  *float64
	TimeZone  string
}

type cityRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	Location struct {
		Latitude  *float64 `maxminddb:"latitude"`
		Longitude *float64 `maxminddb:"longitude"`
		TimeZone  string   `maxminddb:"time_zone"`
	} `maxminddb:"location"`
}

type asnRecord struct {
	AutonomousSystemOrganization string `maxminddb:"autonomous_system_organization"`
}

// Lookup resolves IP addresses against the loaded database(s).
type Lookup struct {
	mu   sync.RWMutex
	city *maxminddb.Reader
	asn  *maxminddb.Reader
}

// NewLookup opens the city and/or ASN databases at the given paths. Either
// path may be empty, in which case that database is simply not consulted.
// Construction never fails solely because a database is missing — it fails
// only if a non-empty path cannot be opened, since a misconfigured path is
// almost certainly an operator mistake worth surfacing at startup.
func NewLookup(cityPath, asnPath string) (*Lookup, error) {
	l := &Lookup{}

	if cityPath != "" {
		reader, err := maxminddb.Open(cityPath)
		if err != nil {
			return nil, err
		}
		l.city = reader
	}

	if asnPath != "" {
		reader, err := maxminddb.Open(asnPath)
		if err != nil {
			return nil, err
		}
		l.asn = reader
	}

	return l, nil
}

// Close releases both underlying databases.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if l.city != nil {
		if err := l.city.Close(); err != nil {
			firstErr = err
		}
	}
	if l.asn != nil {
		if err := l.asn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Lookup resolves ip to Data. Any error (unparseable IP, reserved/private
// range, missing database) yields a zero-value Data rather than an error:
// geo enrichment is best-effort and must never block ingestion.
func (l *Lookup) Lookup(ip string) Data {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Data{}
	}

	var data Data

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.city != nil {
		var rec cityRecord
		if err := l.city.Lookup(parsed, &rec); err == nil {
			data.Country = rec.Country.ISOCode
			data.Longitude = rec.Location.Longitude
			data.Latitude = rec.Location.Latitude
			data.TimeZone = rec.Location.TimeZone
		}
	}

	if l.asn != nil {
		var rec asnRecord
		if err := l.asn.Lookup(parsed, &rec); err == nil {
			data.ASN = rec.AutonomousSystemOrganization
		}
	}

	return data
}
