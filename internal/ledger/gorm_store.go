package ledger

import (
	"fmt"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"gorm.io/gorm"
)

// GormStore persists ledger records through the shared database handle.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) AppendSample(s *models.MetricSample) error {
	if err := g.DB.Create(s).Error; err != nil {
		return fmt.Errorf("failed to persist metric sample: %w", err)
	}
	return nil
}

func (g *GormStore) AppendFinding(f *models.Finding) error {
	if err := g.DB.Create(f).Error; err != nil {
		return fmt.Errorf("failed to persist finding: %w", err)
	}
	return nil
}

func (g *GormStore) LoadWindow(date string) ([]models.MetricSample, []models.Finding, error) {
	var samples []models.MetricSample
	result := g.DB.Where("date = ?", date).Order("timestamp asc").Find(&samples)
	if result.Error != nil {
		return nil, nil, fmt.Errorf("failed to load samples for %s: %w", date, result.Error)
	}

	var findings []models.Finding
	result = g.DB.Where("date = ?", date).Order("timestamp asc").Find(&findings)
	if result.Error != nil {
		return nil, nil, fmt.Errorf("failed to load findings for %s: %w", date, result.Error)
	}

	return samples, findings, nil
}

func (g *GormStore) Dates() ([]string, error) {
	var sampleDates []string
	result := g.DB.Model(&models.MetricSample{}).Distinct("date").Order("date asc").Pluck("date", &sampleDates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sample dates: %w", result.Error)
	}

	var findingDates []string
	result = g.DB.Model(&models.Finding{}).Distinct("date").Order("date asc").Pluck("date", &findingDates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list finding dates: %w", result.Error)
	}

	return mergeSortedDates(sampleDates, findingDates), nil
}

func (g *GormStore) DeleteWindow(date string) error {
	if err := g.DB.Where("date = ?", date).Delete(&models.MetricSample{}).Error; err != nil {
		return fmt.Errorf("failed to delete samples for %s: %w", date, err)
	}
	if err := g.DB.Where("date = ?", date).Delete(&models.Finding{}).Error; err != nil {
		return fmt.Errorf("failed to delete findings for %s: %w", date, err)
	}
	return nil
}

func mergeSortedDates(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case i == len(a):
			out = appendUnique(out, b[j])
			j++
		case j == len(b):
			out = appendUnique(out, a[i])
			i++
		case a[i] < b[j]:
			out = appendUnique(out, a[i])
			i++
		case a[i] > b[j]:
			out = appendUnique(out, b[j])
			j++
		default:
			out = appendUnique(out, a[i])
			i++
			j++
		}
	}
	return out
}

func appendUnique(dates []string, d string) []string {
	if len(dates) > 0 && dates[len(dates)-1] == d {
		return dates
	}
	return append(dates, d)
}
