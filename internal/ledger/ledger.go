// Package ledger is the append-only, time-partitioned store of the day's
// audit data. The sampler and classifier write into it concurrently; the
// daily scheduler reads consistent full-day snapshots out of it.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"go.uber.org/zap"
)

// WriteError wraps a durability failure. A write that did not reach the
// backing store is fatal to the current cycle and surfaced to health status;
// it is never silently swallowed.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ledger write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Window is a read-only copy of one calendar date's partition.
type Window struct {
	Date     string                `json:"date"`
	Samples  []models.MetricSample `json:"samples"`
	Findings []models.Finding      `json:"findings"`
}

// Empty reports whether nothing was recorded for the date. An empty window
// is a valid query result, not an error.
func (w Window) Empty() bool {
	return len(w.Samples) == 0 && len(w.Findings) == 0
}

// Cursor marks a position inside a window for incremental reads.
type Cursor struct {
	SampleIndex  int `json:"sample_index"`
	FindingIndex int `json:"finding_index"`
}

// Ledger owns all MetricSample and Finding data for recent dates. Appends
// are serialized and durable before they are acknowledged; a window a
// rollup reads is a snapshot, never a live slice.
type Ledger struct {
	mu      sync.Mutex
	windows map[string]*Window
	store   Store
	loc     *time.Location
	log     *zap.Logger
}

// New creates a ledger over a durable store. loc is the appliance-local
// timezone that keys windows; a nil loc falls back to time.Local.
func New(store Store, loc *time.Location, log *zap.Logger) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		windows: make(map[string]*Window),
		store:   store,
		loc:     loc,
		log:     log,
	}
}

// Restore reloads every unpruned window from the store. Called once at
// process start so appends after a restart concatenate onto prior data.
func (l *Ledger) Restore() error {
	dates, err := l.store.Dates()
	if err != nil {
		return fmt.Errorf("ledger restore: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, date := range dates {
		samples, findings, err := l.store.LoadWindow(date)
		if err != nil {
			return fmt.Errorf("ledger restore %s: %w", date, err)
		}
		l.windows[date] = &Window{Date: date, Samples: samples, Findings: findings}
	}

	if len(dates) > 0 {
		l.log.Info("ledger restored", zap.Int("windows", len(dates)), zap.Strings("dates", dates))
	}
	return nil
}

// DateKey returns the window key for a timestamp in the appliance timezone.
// Membership is decided by the item's timestamp alone, never by when it was
// ingested.
func (l *Ledger) DateKey(t time.Time) string {
	return t.In(l.loc).Format("2006-01-02")
}

// RecordSample appends a metric sample to its day's window.
func (l *Ledger) RecordSample(s models.MetricSample) error {
	s.Date = l.DateKey(s.Timestamp)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.AppendSample(&s); err != nil {
		return &WriteError{Err: err}
	}

	w := l.windowLocked(s.Date)
	w.Samples = append(w.Samples, s)
	return nil
}

// RecordFinding appends a classification finding to its day's window.
func (l *Ledger) RecordFinding(f models.Finding) error {
	f.Date = l.DateKey(f.Timestamp)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.AppendFinding(&f); err != nil {
		return &WriteError{Err: err}
	}

	w := l.windowLocked(f.Date)
	w.Findings = append(w.Findings, f)
	return nil
}

// Query returns a snapshot copy of the full partition for a date. Dates
// with nothing recorded yield an empty window.
func (l *Ledger) Query(date string) Window {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[date]
	if !ok {
		return Window{Date: date}
	}
	return copyWindow(w)
}

// QuerySince returns the records appended after the cursor position along
// with the advanced cursor, supporting resumed partial reads.
func (l *Ledger) QuerySince(date string, cur Cursor) (Window, Cursor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[date]
	if !ok {
		return Window{Date: date}, cur
	}

	slice := Window{Date: date}
	if cur.SampleIndex < len(w.Samples) {
		slice.Samples = append([]models.MetricSample(nil), w.Samples[cur.SampleIndex:]...)
	}
	if cur.FindingIndex < len(w.Findings) {
		slice.Findings = append([]models.Finding(nil), w.Findings[cur.FindingIndex:]...)
	}
	return slice, Cursor{SampleIndex: len(w.Samples), FindingIndex: len(w.Findings)}
}

// Dates lists every date currently held, ascending.
func (l *Ledger) Dates() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	dates := make([]string, 0, len(l.windows))
	for d := range l.windows {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Prune drops a rolled-up date's window from memory and the store. The
// scheduler calls this once the retention grace period has passed.
func (l *Ledger) Prune(date string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.windows[date]; !ok {
		return nil
	}
	if err := l.store.DeleteWindow(date); err != nil {
		return &WriteError{Err: err}
	}
	delete(l.windows, date)
	l.log.Info("pruned ledger window", zap.String("date", date))
	return nil
}

func (l *Ledger) windowLocked(date string) *Window {
	w, ok := l.windows[date]
	if !ok {
		w = &Window{Date: date}
		l.windows[date] = w
	}
	return w
}

func copyWindow(w *Window) Window {
	return Window{
		Date:     w.Date,
		Samples:  append([]models.MetricSample(nil), w.Samples...),
		Findings: append([]models.Finding(nil), w.Findings...),
	}
}
