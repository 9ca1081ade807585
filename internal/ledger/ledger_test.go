package ledger

import (
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }

func newTestLedger(t *testing.T, store Store) *Ledger {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	return New(store, time.UTC, nil)
}

func TestWindowKeyedByTimestampNotIngestionOrder(t *testing.T) {
	l := newTestLedger(t, nil)

	today := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	yesterday := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)

	// Ingest out of order: today's sample first, yesterday's finding after.
	require.NoError(t, l.RecordSample(models.MetricSample{Timestamp: today, CPUPct: pct(10)}))
	require.NoError(t, l.RecordFinding(models.Finding{Timestamp: yesterday, FilePath: "/vol1/a.sh", Kind: models.FindingSuspectedEmptyScript}))

	w1 := l.Query("2025-06-01")
	assert.Len(t, w1.Findings, 1)
	assert.Empty(t, w1.Samples)

	w2 := l.Query("2025-06-02")
	assert.Len(t, w2.Samples, 1)
	assert.Empty(t, w2.Findings)

	assert.Equal(t, []string{"2025-06-01", "2025-06-02"}, l.Dates())
}

func TestQueryEmptyDateIsNotAnError(t *testing.T) {
	l := newTestLedger(t, nil)

	w := l.Query("2025-01-01")
	assert.True(t, w.Empty())
	assert.Equal(t, "2025-01-01", w.Date)
}

func TestQueryReturnsSnapshotCopy(t *testing.T) {
	l := newTestLedger(t, nil)
	ts := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordSample(models.MetricSample{Timestamp: ts, CPUPct: pct(20)}))
	snap := l.Query("2025-06-02")

	// A later append must not mutate the snapshot.
	require.NoError(t, l.RecordSample(models.MetricSample{Timestamp: ts.Add(time.Minute), CPUPct: pct(30)}))
	assert.Len(t, snap.Samples, 1)
	assert.Len(t, l.Query("2025-06-02").Samples, 2)
}

func TestQuerySinceCursor(t *testing.T) {
	l := newTestLedger(t, nil)
	ts := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordSample(models.MetricSample{Timestamp: ts}))
	require.NoError(t, l.RecordFinding(models.Finding{Timestamp: ts, FilePath: "/vol1/a"}))

	slice, cur := l.QuerySince("2025-06-02", Cursor{})
	assert.Len(t, slice.Samples, 1)
	assert.Len(t, slice.Findings, 1)

	// Nothing new: the slice is empty, the cursor stable.
	slice, cur2 := l.QuerySince("2025-06-02", cur)
	assert.True(t, slice.Empty())
	assert.Equal(t, cur, cur2)

	// Resume picks up only records appended after the cursor.
	require.NoError(t, l.RecordFinding(models.Finding{Timestamp: ts.Add(time.Minute), FilePath: "/vol1/b"}))
	slice, _ = l.QuerySince("2025-06-02", cur)
	assert.Empty(t, slice.Samples)
	require.Len(t, slice.Findings, 1)
	assert.Equal(t, "/vol1/b", slice.Findings[0].FilePath)
}

func TestRestoreConcatenatesAcrossRestart(t *testing.T) {
	store := NewMemoryStore()

	l1 := newTestLedger(t, store)
	ts := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, l1.RecordSample(models.MetricSample{Timestamp: ts, CPUPct: pct(15)}))
	require.NoError(t, l1.RecordFinding(models.Finding{Timestamp: ts, FilePath: "/vol1/pre-restart"}))

	// Fresh ledger over the same store simulates a process restart.
	l2 := newTestLedger(t, store)
	require.NoError(t, l2.Restore())
	require.NoError(t, l2.RecordFinding(models.Finding{Timestamp: ts.Add(time.Hour), FilePath: "/vol1/post-restart"}))

	w := l2.Query("2025-06-02")
	assert.Len(t, w.Samples, 1)
	require.Len(t, w.Findings, 2)
	assert.Equal(t, "/vol1/pre-restart", w.Findings[0].FilePath)
	assert.Equal(t, "/vol1/post-restart", w.Findings[1].FilePath)
}

func TestPruneRemovesWindowAndStoreRecords(t *testing.T) {
	store := NewMemoryStore()
	l := newTestLedger(t, store)
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordSample(models.MetricSample{Timestamp: ts}))
	require.NoError(t, l.Prune("2025-06-01"))

	assert.True(t, l.Query("2025-06-01").Empty())
	samples, _, err := store.LoadWindow("2025-06-01")
	require.NoError(t, err)
	assert.Empty(t, samples)

	// Pruning an absent date is a no-op.
	require.NoError(t, l.Prune("2024-01-01"))
}

type failingStore struct{ Store }

func (f failingStore) AppendSample(*models.MetricSample) error {
	return assert.AnError
}

func TestDurabilityFailureSurfacesAsWriteError(t *testing.T) {
	l := newTestLedger(t, failingStore{NewMemoryStore()})

	err := l.RecordSample(models.MetricSample{Timestamp: time.Now()})
	require.Error(t, err)

	var we *WriteError
	require.ErrorAs(t, err, &we)

	// The failed append must not show up in the in-memory window either.
	assert.True(t, l.Query(l.DateKey(time.Now())).Empty())
}
