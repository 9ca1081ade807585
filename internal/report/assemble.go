// Package report turns one day's ledger window into the aggregated payload
// handed to the mail collaborator. Assembly is a pure transformation with
// no network or rendering side effects.
package report

import (
	"sort"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
)

// Aggregate summarizes one utilization series. Count is the number of
// samples that actually carried the metric; failed sensor reads are
// excluded rather than counted as zero.
type Aggregate struct {
	Min   float64 `json:"min"`
	Avg   float64 `json:"avg"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Payload is the structured daily report.
type Payload struct {
	Date        string    `json:"date"`
	GeneratedAt time.Time `json:"generated_at"`

	SampleCount int       `json:"sample_count"`
	CPU         Aggregate `json:"cpu"`
	Memory      Aggregate `json:"memory"`
	Storage     Aggregate `json:"storage"`
	EnergyWh    float64   `json:"energy_wh"`

	FindingCount int                        `json:"finding_count"`
	Counts       map[models.FindingKind]int `json:"counts"`
	Flagged      []models.Finding           `json:"flagged"`
}

// Assemble aggregates a day's window. sampleInterval is the sampler period,
// used to integrate the power series into an energy total.
func Assemble(w ledger.Window, sampleInterval time.Duration) Payload {
	p := Payload{
		Date:        w.Date,
		GeneratedAt: time.Now(),
		SampleCount: len(w.Samples),
		Counts: map[models.FindingKind]int{
			models.FindingNormal:               0,
			models.FindingExtensionSpoofed:     0,
			models.FindingSuspectedEmptyScript: 0,
		},
	}

	var cpu, mem, storage series
	var wattSum float64
	var wattCount int
	for _, s := range w.Samples {
		cpu.add(s.CPUPct)
		mem.add(s.MemPct)
		storage.add(s.StoragePct)
		if s.EstimatedWatts != nil {
			wattSum += *s.EstimatedWatts
			wattCount++
		}
	}
	p.CPU = cpu.aggregate()
	p.Memory = mem.aggregate()
	p.Storage = storage.aggregate()
	if wattCount > 0 && sampleInterval > 0 {
		p.EnergyWh = wattSum * sampleInterval.Hours()
	}

	p.FindingCount = len(w.Findings)
	for _, f := range w.Findings {
		p.Counts[f.Kind]++
		if f.Kind != models.FindingNormal {
			p.Flagged = append(p.Flagged, f)
		}
	}
	sort.SliceStable(p.Flagged, func(i, j int) bool {
		return p.Flagged[i].Timestamp.Before(p.Flagged[j].Timestamp)
	})

	return p
}

type series struct {
	min, max, sum float64
	count         int
}

func (s *series) add(v *float64) {
	if v == nil {
		return
	}
	if s.count == 0 || *v < s.min {
		s.min = *v
	}
	if s.count == 0 || *v > s.max {
		s.max = *v
	}
	s.sum += *v
	s.count++
}

func (s *series) aggregate() Aggregate {
	if s.count == 0 {
		return Aggregate{}
	}
	return Aggregate{
		Min:   s.min,
		Avg:   s.sum / float64(s.count),
		Max:   s.max,
		Count: s.count,
	}
}
