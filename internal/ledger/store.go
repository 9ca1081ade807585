package ledger

import (
	"sort"
	"sync"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
)

// Store is the durable backing for the ledger. An append must be on stable
// storage before it returns; the in-memory window is only updated after.
type Store interface {
	AppendSample(s *models.MetricSample) error
	AppendFinding(f *models.Finding) error

	// LoadWindow returns everything recorded for a date, oldest first.
	LoadWindow(date string) ([]models.MetricSample, []models.Finding, error)

	// Dates lists every date with recorded data, ascending.
	Dates() ([]string, error)

	// DeleteWindow removes a pruned date's records.
	DeleteWindow(date string) error
}

// MemoryStore keeps windows in process memory. It backs tests and
// dev setups that run without a database; production uses the gorm store.
type MemoryStore struct {
	mu       sync.Mutex
	samples  map[string][]models.MetricSample
	findings map[string][]models.Finding
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		samples:  make(map[string][]models.MetricSample),
		findings: make(map[string][]models.Finding),
	}
}

func (m *MemoryStore) AppendSample(s *models.MetricSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[s.Date] = append(m.samples[s.Date], *s)
	return nil
}

func (m *MemoryStore) AppendFinding(f *models.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findings[f.Date] = append(m.findings[f.Date], *f)
	return nil
}

func (m *MemoryStore) LoadWindow(date string) ([]models.MetricSample, []models.Finding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := append([]models.MetricSample(nil), m.samples[date]...)
	findings := append([]models.Finding(nil), m.findings[date]...)
	return samples, findings, nil
}

func (m *MemoryStore) Dates() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	for d := range m.samples {
		seen[d] = true
	}
	for d := range m.findings {
		seen[d] = true
	}
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (m *MemoryStore) DeleteWindow(date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.samples, date)
	delete(m.findings, date)
	return nil
}
