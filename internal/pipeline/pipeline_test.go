package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"foiadir/internal/directory"
	"foiadir/internal/metrics"
	"foiadir/internal/registry"
	"foiadir/internal/scrape"
)

type fakeFetcher struct {
	components []registry.Component
}

func (f *fakeFetcher) FetchComponents(context.Context) []registry.Component {
	return f.components
}

type fakeScraper struct {
	gotIDs  []string
	byID    map[string]scrape.Record
	scraped int
}

func (f *fakeScraper) Scrape(_ context.Context, ids []string) []scrape.Record {
	f.gotIDs = append([]string(nil), ids...)
	f.scraped += len(ids)
	out := make([]scrape.Record, len(ids))
	for i, id := range ids {
		if rec, ok := f.byID[id]; ok {
			out[i] = rec
		} else {
			out[i] = scrape.Record{UnitID: id}
		}
	}
	return out
}

func testStore(t *testing.T) *directory.Store {
	t.Helper()
	return directory.NewStore(filepath.Join(t.TempDir(), "directory.json"), time.Hour, zap.NewNop())
}

func TestRun_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{components: []registry.Component{
		{ID: "u-1", Title: "Office of the Secretary", AgencyName: "Department of Examples"},
		{ID: "u-2", Title: "Office of Inspector General", AgencyName: "Department of Examples"},
	}}
	scraper := &fakeScraper{byID: map[string]scrape.Record{
		"u-1": {UnitID: "u-1", DisplayName: "Office of the Secretary", Email: "foia@agency.gov"},
	}}
	store := testStore(t)

	report, err := New(fetcher, scraper, store, nil, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Components)
	assert.Equal(t, 2, report.Scraped)
	assert.Equal(t, 1, report.WithEmail)
	assert.Equal(t, 2, report.Records)
	assert.Greater(t, report.Duration, time.Duration(0))
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err, "run id is a uuid")

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Office of the Secretary", records[0].Name)
	assert.Equal(t, []string{"foia@agency.gov"}, records[0].Emails)
	assert.Equal(t, "Department of Examples", records[1].AgencyName)
	assert.Empty(t, records[1].Emails)
}

func TestRun_ScrapesEveryEnumeratedUnitInOrder(t *testing.T) {
	fetcher := &fakeFetcher{components: []registry.Component{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}
	scraper := &fakeScraper{}

	_, err := New(fetcher, scraper, testStore(t), nil, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, scraper.gotIDs)
}

func TestRun_EmptyEnumerationLeavesDirectoryUntouched(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Replace([]directory.Record{
		{UnitID: "keep", Name: "Existing Unit", Emails: []string{"keep@agency.gov"}},
	}))

	scraper := &fakeScraper{}
	_, err := New(&fakeFetcher{}, scraper, store, nil, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, scraper.scraped, "nothing scraped when enumeration is empty")

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].UnitID)
}

func TestRun_CanceledContextLeavesDirectoryUntouched(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Replace([]directory.Record{
		{UnitID: "keep", Name: "Existing Unit"},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{components: []registry.Component{{ID: "u-1"}}}
	_, err := New(fetcher, &fakeScraper{}, store, nil, zap.NewNop()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "keep", records[0].UnitID)
}

func TestRun_RecordsMetrics(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())
	fetcher := &fakeFetcher{components: []registry.Component{{ID: "u-1"}, {ID: "u-2"}}}

	_, err := New(fetcher, &fakeScraper{}, testStore(t), m, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DirectorySize))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}
