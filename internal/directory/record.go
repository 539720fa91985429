// Package directory holds the canonical agency directory: reconciliation
// of scraped and registry data, file-backed storage with a TTL cache, and
// unit resolution.
package directory

import "time"

// Channel is the submission route chosen for a unit.
type Channel string

const (
	// ChannelEmail means the unit accepts requests at a known address.
	ChannelEmail Channel = "EMAIL"
	// ChannelPortal means requests go through the unit's web portal.
	ChannelPortal Channel = "PORTAL"
)

// Record is one canonical directory entry, the merge of a scraped unit
// page and its registry row. The directory is replaced wholesale by each
// pipeline run and read-only in between.
type Record struct {
	UnitID             string    `json:"unit_id"`
	Name               string    `json:"name"`
	Abbreviation       string    `json:"abbreviation,omitempty"`
	AgencyName         string    `json:"agency_name,omitempty"`
	AgencyAbbreviation string    `json:"agency_abbreviation,omitempty"`
	Emails             []string  `json:"emails,omitempty"`
	Website            string    `json:"website,omitempty"`
	PostalAddress      string    `json:"postal_address,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	LastReconciledAt   time.Time `json:"last_reconciled_at"`
}

// HasEmail reports whether the record carries a usable submission address.
func (r *Record) HasEmail() bool {
	return len(r.Emails) != 0
}

// Email returns the highest-priority submission address, or "".
func (r *Record) Email() string {
	if len(r.Emails) == 0 {
		return ""
	}
	return r.Emails[0]
}

// Resolution is the outcome of resolving a caller's unit reference. It is
// computed per call and never persisted.
type Resolution struct {
	Channel Channel `json:"channel"`
	Record  *Record `json:"record,omitempty"`
	Email   string  `json:"email,omitempty"`
}
