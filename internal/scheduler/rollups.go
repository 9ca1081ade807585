package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"gorm.io/gorm"
)

// RollupStore persists RollupRecords. The scheduler is the only writer.
type RollupStore interface {
	// Get returns the record for a date, or nil when none exists.
	Get(date string) (*models.RollupRecord, error)

	// Put writes the record for a date. Writing a date twice is an error;
	// the unique index is part of the at-most-once guarantee.
	Put(rec *models.RollupRecord) error

	// List returns all records, oldest date first.
	List() ([]models.RollupRecord, error)
}

// GormRollupStore backs RollupRecords with the shared database handle.
type GormRollupStore struct {
	DB *gorm.DB
}

func NewGormRollupStore(db *gorm.DB) *GormRollupStore {
	return &GormRollupStore{DB: db}
}

func (g *GormRollupStore) Get(date string) (*models.RollupRecord, error) {
	var rec models.RollupRecord
	result := g.DB.Where("date = ?", date).First(&rec)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rollup record for %s: %w", date, result.Error)
	}
	return &rec, nil
}

func (g *GormRollupStore) Put(rec *models.RollupRecord) error {
	if err := g.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to persist rollup record for %s: %w", rec.Date, err)
	}
	return nil
}

func (g *GormRollupStore) List() ([]models.RollupRecord, error) {
	var recs []models.RollupRecord
	result := g.DB.Order("date asc").Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list rollup records: %w", result.Error)
	}
	return recs, nil
}

// MemoryRollupStore keeps records in memory for tests and database-less
// dev runs.
type MemoryRollupStore struct {
	mu   sync.Mutex
	recs map[string]models.RollupRecord
}

func NewMemoryRollupStore() *MemoryRollupStore {
	return &MemoryRollupStore{recs: make(map[string]models.RollupRecord)}
}

func (m *MemoryRollupStore) Get(date string) (*models.RollupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[date]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryRollupStore) Put(rec *models.RollupRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[rec.Date]; exists {
		return fmt.Errorf("rollup record for %s already exists", rec.Date)
	}
	m.recs[rec.Date] = *rec
	return nil
}

func (m *MemoryRollupStore) List() ([]models.RollupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]models.RollupRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs, nil
}
