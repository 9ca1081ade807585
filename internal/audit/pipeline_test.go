package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	ledger.Store
}

func (b brokenStore) AppendFinding(*models.Finding) error {
	return errors.New("disk full")
}

func newPipeline(t *testing.T, store ledger.Store) (*Pipeline, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(store, time.UTC, nil)
	classifier := classify.NewClassifier(classify.DefaultPolicy(), nil)
	return NewPipeline(classifier, l, nil, nil), l
}

func TestHandleRecordsFinding(t *testing.T) {
	p, l := newPipeline(t, ledger.NewMemoryStore())

	ts := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	finding, err := p.Handle(classify.UploadEvent{
		Timestamp: ts,
		FilePath:  "/vol1/photos/holiday.jpg",
		SizeBytes: 120000,
		Signature: sniff.SigPEExecutable,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FindingExtensionSpoofed, finding.Kind)

	window := l.Query("2025-06-02")
	require.Len(t, window.Findings, 1)
	assert.Equal(t, "/vol1/photos/holiday.jpg", window.Findings[0].FilePath)
	assert.Equal(t, models.FindingExtensionSpoofed, window.Findings[0].Kind)
}

func TestHandleRejectsMalformedEvent(t *testing.T) {
	p, l := newPipeline(t, ledger.NewMemoryStore())

	_, err := p.Handle(classify.UploadEvent{SizeBytes: 10})
	require.ErrorIs(t, err, classify.ErrBadEvent)
	assert.Empty(t, l.Dates())
}

func TestHandleSurfacesLedgerWriteError(t *testing.T) {
	p, l := newPipeline(t, brokenStore{Store: ledger.NewMemoryStore()})

	_, err := p.Handle(classify.UploadEvent{
		Timestamp: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
		FilePath:  "/vol1/a.jpg",
		SizeBytes: 10,
		Signature: sniff.SigJPEG,
	})

	var writeErr *ledger.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.True(t, l.Query("2025-06-02").Empty())
}
