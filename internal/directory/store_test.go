package directory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleRecords() []Record {
	return []Record{
		{UnitID: "u1", Name: "Unit One", Emails: []string{"one@agency.gov"}},
		{UnitID: "u2", Name: "Unit Two"},
	}
}

func TestStore_ReplaceThenRecords(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "directory.json"), time.Hour, zap.NewNop())

	require.NoError(t, store.Replace(sampleRecords()))

	got, err := store.Records()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].UnitID)
	assert.Equal(t, []string{"one@agency.gov"}, got[0].Emails)
}

func TestStore_MissingFileIsEmptyDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"), time.Hour, zap.NewNop())

	got, err := store.Records()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_CacheServesUntilInvalidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	reader := NewStore(path, time.Hour, zap.NewNop())
	writer := NewStore(path, time.Hour, zap.NewNop())

	require.NoError(t, writer.Replace(sampleRecords()))

	got, err := reader.Records()
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Replace through the other handle; the reader's cache is still warm.
	require.NoError(t, writer.Replace(sampleRecords()[:1]))

	got, err = reader.Records()
	require.NoError(t, err)
	assert.Len(t, got, 2, "fresh cache serves the stale list")

	reader.Invalidate()

	got, err = reader.Records()
	require.NoError(t, err)
	assert.Len(t, got, 1, "invalidation forces a re-read")
}

func TestStore_TTLExpiryRefreshes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	reader := NewStore(path, 50*time.Millisecond, zap.NewNop())
	writer := NewStore(path, time.Hour, zap.NewNop())

	require.NoError(t, writer.Replace(sampleRecords()))
	_, err := reader.Records()
	require.NoError(t, err)

	require.NoError(t, writer.Replace(sampleRecords()[:1]))

	assert.Eventually(t, func() bool {
		got, err := reader.Records()
		return err == nil && len(got) == 1
	}, time.Second, 10*time.Millisecond, "expired cache must re-read the file")
}

func TestStore_WholesaleReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	store := NewStore(path, time.Hour, zap.NewNop())

	require.NoError(t, store.Replace(sampleRecords()))
	require.NoError(t, store.Replace([]Record{{UnitID: "only", Name: "Only Unit"}}))

	// The file carries exactly the new list, nothing merged in.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []Record
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, "only", onDisk[0].UnitID)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(path, time.Hour, zap.NewNop())
	_, err := store.Records()
	assert.Error(t, err)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "directory.json"), time.Hour, zap.NewNop())
	require.NoError(t, store.Replace(sampleRecords()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := store.Records(); err != nil {
					t.Error(err)
					return
				}
				if j%10 == 0 {
					store.Invalidate()
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			if err := store.Replace(sampleRecords()); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()
}

func TestWatcher_InvalidatesOnExternalReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	reader := NewStore(path, time.Hour, zap.NewNop())
	writer := NewStore(path, time.Hour, zap.NewNop())

	require.NoError(t, writer.Replace(sampleRecords()))
	got, err := reader.Records()
	require.NoError(t, err)
	require.Len(t, got, 2)

	w, err := NewWatcher(reader, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Another process replaces the file; the reader's TTL would hide that
	// for an hour, so only the watcher can surface it.
	require.NoError(t, writer.Replace(sampleRecords()[:1]))

	assert.Eventually(t, func() bool {
		got, err := reader.Records()
		return err == nil && len(got) == 1
	}, 3*time.Second, 50*time.Millisecond, "watcher must invalidate the cache")
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "directory.json"), time.Hour, zap.NewNop())
	w, err := NewWatcher(store, zap.NewNop())
	require.NoError(t, err)

	w.Stop() // must not deadlock or panic
}

// Registration fails when the watch path cannot exist, here because its
// parent is a regular file. Start still succeeds and Stop must return
// promptly instead of waiting on an event loop that never ran.
func TestWatcher_StopAfterFailedRegistration(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	store := NewStore(filepath.Join(blocker, "sub", "directory.json"), time.Hour, zap.NewNop())
	w, err := NewWatcher(store, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after a failed watch registration")
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "directory.json"), time.Hour, zap.NewNop())
	w, err := NewWatcher(store, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
