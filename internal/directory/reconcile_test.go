package directory

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foiadir/internal/registry"
	"foiadir/internal/scrape"
)

var reconcileAt = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func TestReconcile_RegistryValuesPreferred(t *testing.T) {
	scraped := []scrape.Record{{
		UnitID:        "u1",
		DisplayName:   "Scraped Name",
		Email:         "foia@unit.gov",
		Phone:         "111-555-0000",
		PostalAddress: "1 Scraped Way, Anytown, VA 22100",
	}}
	components := []registry.Component{{
		ID:                 "u1",
		Title:              "Registry Title",
		Abbreviation:       "RT",
		AgencyName:         "Department of Records",
		AgencyAbbreviation: "DOR",
		Website:            "https://records.gov",
		Phone:              "222-555-0000",
		PostalAddress:      "2 Registry Rd, Washington, DC 20001",
	}}

	got := Reconcile(scraped, components, reconcileAt)

	require.Len(t, got, 1)
	rec := got[0]
	assert.Equal(t, "Registry Title", rec.Name)
	assert.Equal(t, "RT", rec.Abbreviation)
	assert.Equal(t, "Department of Records", rec.AgencyName)
	assert.Equal(t, "DOR", rec.AgencyAbbreviation)
	assert.Equal(t, "https://records.gov", rec.Website)
	assert.Equal(t, "222-555-0000", rec.Phone)
	assert.Equal(t, "2 Registry Rd, Washington, DC 20001", rec.PostalAddress)
	assert.Equal(t, reconcileAt, rec.LastReconciledAt)
}

func TestReconcile_ScrapedFillsRegistryGaps(t *testing.T) {
	scraped := []scrape.Record{{
		UnitID:      "u1",
		DisplayName: "Scraped Name",
		Phone:       "111-555-0000",
	}}
	components := []registry.Component{{ID: "u1"}} // registry row with empty fields

	got := Reconcile(scraped, components, reconcileAt)

	require.Len(t, got, 1)
	assert.Equal(t, "Scraped Name", got[0].Name)
	assert.Equal(t, "111-555-0000", got[0].Phone)
}

func TestReconcile_ScrapedSetDrivesOutput(t *testing.T) {
	scraped := []scrape.Record{
		{UnitID: "seen-1", DisplayName: "One"},
		{UnitID: "seen-2", DisplayName: "Two"},
	}
	components := []registry.Component{
		{ID: "seen-1", Title: "One"},
		{ID: "registry-only", Title: "Never Scraped"},
	}

	got := Reconcile(scraped, components, reconcileAt)

	require.Len(t, got, 2)
	assert.Equal(t, "seen-1", got[0].UnitID)
	assert.Equal(t, "seen-2", got[1].UnitID)
}

func TestReconcile_EmailSingletonFromScrape(t *testing.T) {
	scraped := []scrape.Record{
		{UnitID: "u1", Email: "foia@unit.gov"},
		{UnitID: "u2"}, // placeholder, no email found
	}
	components := []registry.Component{
		{ID: "u1", Emails: []string{"ignored@registry.gov"}},
		{ID: "u2", Emails: []string{"also-ignored@registry.gov"}},
	}

	got := Reconcile(scraped, components, reconcileAt)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"foia@unit.gov"}, got[0].Emails,
		"scraped email is authoritative; registry emails are not merged")
	assert.Empty(t, got[1].Emails, "no scraped email means an empty list")
}

func TestReconcile_SharedIntakeNeverCanonical(t *testing.T) {
	scraped := []scrape.Record{{UnitID: "u1", Email: "National.FOIAPortal@usdoj.gov"}}

	got := Reconcile(scraped, nil, reconcileAt)

	require.Len(t, got, 1)
	assert.Empty(t, got[0].Emails)
}

func TestReconcile_UnitIDUnique(t *testing.T) {
	scraped := []scrape.Record{
		{UnitID: "dup", DisplayName: "First"},
		{UnitID: "dup", DisplayName: "Second"},
		{UnitID: "other"},
	}

	got := Reconcile(scraped, nil, reconcileAt)

	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Name, "first occurrence wins")
	assert.Equal(t, "other", got[1].UnitID)
}

func TestReconcile_Deterministic(t *testing.T) {
	scraped := []scrape.Record{
		{UnitID: "u1", DisplayName: "One", Email: "one@unit.gov"},
		{UnitID: "u2", DisplayName: "Two", Phone: "333-555-0101"},
	}
	components := []registry.Component{
		{ID: "u2", Title: "Two Proper", Website: "https://two.gov"},
	}

	first := Reconcile(scraped, components, reconcileAt)
	second := Reconcile(scraped, components, reconcileAt)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical inputs produced different outputs (-first +second):\n%s", diff)
	}
}

func TestReconcile_EmptyInputs(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil, reconcileAt))

	onlyRegistry := Reconcile(nil, []registry.Component{{ID: "x"}}, reconcileAt)
	assert.Empty(t, onlyRegistry, "registry rows without scrapes produce nothing")
}
