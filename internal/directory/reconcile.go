package directory

import (
	"time"

	"foiadir/internal/extract"
	"foiadir/internal/registry"
	"foiadir/internal/scrape"
)

// Reconcile merges scraped unit pages with registry components into
// canonical records.
//
// The scraped set drives the output: one record per scraped unit, in
// scraped order, with duplicate unit ids collapsed to their first
// occurrence. Components never scraped produce nothing. For the fields
// both sides carry, the registry value wins when non-empty and the scraped
// value fills the gap; the scraped email is the one exception, since the
// registry rarely exposes a directly usable submission address. Given the
// same inputs and timestamp the output is identical.
func Reconcile(scraped []scrape.Record, components []registry.Component, at time.Time) []Record {
	byID := make(map[string]registry.Component, len(components))
	for _, comp := range components {
		byID[comp.ID] = comp
	}

	seen := make(map[string]bool, len(scraped))
	out := make([]Record, 0, len(scraped))
	for _, s := range scraped {
		if seen[s.UnitID] {
			continue
		}
		seen[s.UnitID] = true

		comp := byID[s.UnitID] // zero value when the registry never listed the unit

		rec := Record{
			UnitID:             s.UnitID,
			Name:               prefer(comp.Title, s.DisplayName),
			Abbreviation:       comp.Abbreviation,
			AgencyName:         comp.AgencyName,
			AgencyAbbreviation: comp.AgencyAbbreviation,
			Website:            comp.Website,
			PostalAddress:      prefer(comp.PostalAddress, s.PostalAddress),
			Phone:              prefer(comp.Phone, s.Phone),
			LastReconciledAt:   at,
		}

		if e := s.Email; e != "" && !extract.IsSharedIntake(e) {
			rec.Emails = []string{e}
		}

		out = append(out, rec)
	}

	return out
}

func prefer(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
