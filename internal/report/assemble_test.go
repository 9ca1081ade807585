package report

import (
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }

func sampleAt(h int, cpu, mem, storage, watts float64) models.MetricSample {
	return models.MetricSample{
		Timestamp:      time.Date(2025, 6, 2, h, 0, 0, 0, time.UTC),
		CPUPct:         pct(cpu),
		MemPct:         pct(mem),
		StoragePct:     pct(storage),
		EstimatedWatts: pct(watts),
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	w := ledger.Window{
		Date: "2025-06-02",
		Samples: []models.MetricSample{
			sampleAt(1, 10, 40, 70, 4),
			sampleAt(2, 30, 50, 71, 8),
			sampleAt(3, 20, 60, 72, 6),
		},
		Findings: []models.Finding{
			{Timestamp: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), Kind: models.FindingNormal},
			{Timestamp: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), Kind: models.FindingExtensionSpoofed, FilePath: "/vol1/b.jpg"},
			{Timestamp: time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC), Kind: models.FindingSuspectedEmptyScript, FilePath: "/vol1/c.sh"},
			{Timestamp: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), Kind: models.FindingNormal},
		},
	}

	p := Assemble(w, time.Hour)

	assert.Equal(t, 3, p.SampleCount)
	assert.Equal(t, 4, p.FindingCount)

	// Counts per kind sum back to the total number of findings.
	total := 0
	for _, n := range p.Counts {
		total += n
	}
	assert.Equal(t, p.FindingCount, total)
	assert.Equal(t, 2, p.Counts[models.FindingNormal])
	assert.Equal(t, 1, p.Counts[models.FindingExtensionSpoofed])
	assert.Equal(t, 1, p.Counts[models.FindingSuspectedEmptyScript])

	assert.InDelta(t, 10, p.CPU.Min, 0.001)
	assert.InDelta(t, 20, p.CPU.Avg, 0.001)
	assert.InDelta(t, 30, p.CPU.Max, 0.001)
	assert.Equal(t, 3, p.CPU.Count)
	assert.InDelta(t, 50, p.Memory.Avg, 0.001)
	assert.InDelta(t, 71, p.Storage.Avg, 0.001)

	// 4+8+6 watts over one-hour intervals
	assert.InDelta(t, 18, p.EnergyWh, 0.001)
}

func TestAssembleFlaggedOrderedByTimestamp(t *testing.T) {
	w := ledger.Window{
		Date: "2025-06-02",
		Findings: []models.Finding{
			{Timestamp: time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC), Kind: models.FindingExtensionSpoofed, FilePath: "/vol1/later.jpg"},
			{Timestamp: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), Kind: models.FindingSuspectedEmptyScript, FilePath: "/vol1/earlier.sh"},
			{Timestamp: time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC), Kind: models.FindingNormal, FilePath: "/vol1/fine.png"},
		},
	}

	p := Assemble(w, time.Minute)

	// Normal findings are counted but not surfaced in the flagged list.
	require.Len(t, p.Flagged, 2)
	assert.Equal(t, "/vol1/earlier.sh", p.Flagged[0].FilePath)
	assert.Equal(t, "/vol1/later.jpg", p.Flagged[1].FilePath)
}

func TestAssembleSkipsNullSensorFields(t *testing.T) {
	w := ledger.Window{
		Date: "2025-06-02",
		Samples: []models.MetricSample{
			{Timestamp: time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC), CPUPct: pct(50)},
			{Timestamp: time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), MemPct: pct(60)},
		},
	}

	p := Assemble(w, time.Minute)

	assert.Equal(t, 2, p.SampleCount)
	assert.Equal(t, 1, p.CPU.Count)
	assert.InDelta(t, 50, p.CPU.Avg, 0.001)
	assert.Equal(t, 1, p.Memory.Count)
	assert.Equal(t, 0, p.Storage.Count)
	assert.Zero(t, p.EnergyWh)
}

func TestAssembleEmptyWindow(t *testing.T) {
	p := Assemble(ledger.Window{Date: "2025-06-02"}, time.Minute)

	assert.Equal(t, "2025-06-02", p.Date)
	assert.Zero(t, p.SampleCount)
	assert.Zero(t, p.FindingCount)
	assert.Empty(t, p.Flagged)
	assert.Zero(t, p.CPU.Count)
}
