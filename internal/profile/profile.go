// Package profile defines the typed DNS-sync profile entities and their
// validation rules. Field names in JSON match the legacy on-disk profile
// format so existing profile exports remain loadable.
package profile

import (
	"errors"
	"fmt"
)

// Family selects which public address a record is synced to.
type Family string

// Supported address families.
const (
	IPv4 Family = "IPv4"
	IPv6 Family = "IPv6"
)

// Valid reports whether f is a recognized address family.
func (f Family) Valid() bool {
	return f == IPv4 || f == IPv6
}

// Record types accepted by the update API.
const (
	TypeA     = "A"
	TypeAAAA  = "AAAA"
	TypeCNAME = "CNAME"
)

// DefaultTTL is used when a record carries a TTL outside the accepted set.
const DefaultTTL = 3600

// validTTLs is the closed set of TTL values the provider accepts.
// 1 means "auto".
var validTTLs = map[int]struct{}{
	1: {}, 60: {}, 120: {}, 300: {}, 600: {}, 900: {},
	1800: {}, 3600: {}, 7200: {}, 18000: {}, 43200: {}, 86400: {},
}

// NormalizeTTL returns ttl if it is in the accepted set, DefaultTTL otherwise.
func NormalizeTTL(ttl int) int {
	if _, ok := validTTLs[ttl]; ok {
		return ttl
	}
	return DefaultTTL
}

// RecordSpec describes one DNS record to keep current.
type RecordSpec struct {
	RecordID string `json:"RecordID"`
	Name     string `json:"Name"`
	Content  Family `json:"Content"`
	Type     string `json:"Type"`
	Proxied  bool   `json:"Proxied"`
	TTL      int    `json:"TTL"`
}

// Profile is a named bundle of provider credentials and the records to sync.
// APIKey and ZoneID are plaintext in memory; the store encrypts them at rest.
type Profile struct {
	Name       string       `json:"-"`
	APIKey     string       `json:"ApiKey"`
	ZoneID     string       `json:"ZoneId"`
	MainDomain string       `json:"mainDomain"`
	DNSRecords []RecordSpec `json:"DnsRecords"`
}

// Validation errors.
var (
	ErrMissingName   = errors.New("profile name is required")
	ErrMissingAPIKey = errors.New("profile API key is required")
	ErrMissingZoneID = errors.New("profile zone ID is required")
	ErrNoRecords     = errors.New("profile has no DNS records")
)

// Validate checks that the profile carries everything a reconciliation pass
// needs. Record type / address family agreement is deliberately not checked:
// the provider rejects mismatches itself and existing profiles may rely on
// that.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if p.APIKey == "" {
		return ErrMissingAPIKey
	}
	if p.ZoneID == "" {
		return ErrMissingZoneID
	}
	if len(p.DNSRecords) == 0 {
		return ErrNoRecords
	}
	for i, rec := range p.DNSRecords {
		if rec.RecordID == "" {
			return fmt.Errorf("record %d: RecordID is required", i)
		}
		if !rec.Content.Valid() {
			return fmt.Errorf("record %d: unknown address family %q", i, rec.Content)
		}
	}
	return nil
}

// FQDN returns the fully-qualified record name for a spec in this profile.
func (p *Profile) FQDN(rec RecordSpec) string {
	return rec.Name + "." + p.MainDomain
}
