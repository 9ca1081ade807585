package monitor

import "math"

// DiskCounts is the number of installed drives by type.
type DiskCounts struct {
	HDD  int `json:"hdd" yaml:"hdd"`
	SSD  int `json:"ssd" yaml:"ssd"`
	NVMe int `json:"nvme" yaml:"nvme"`
}

// PowerModel is the linear TDP-based power estimation model for the
// declared hardware profile. All knobs come from configuration.
type PowerModel struct {
	CPUTDPWatts      float64
	IdleRatio        float64 // idle CPU power as a fraction of TDP
	BaseWatts        float64 // board, fans, PSU overhead
	Disks            DiskCounts
	HDDWatts         float64
	SSDWatts         float64
	NVMeWatts        float64
	MemorySticks     int
	MemoryStickWatts float64
}

// Breakdown is the per-component power estimate for one point in time.
type Breakdown struct {
	TotalWatts  float64 `json:"total_watts"`
	BaseWatts   float64 `json:"base_watts"`
	CPUWatts    float64 `json:"cpu_watts"`
	DiskWatts   float64 `json:"disk_watts"`
	MemoryWatts float64 `json:"memory_watts"`
}

// DefaultPowerModel returns the conservative defaults for a small NAS:
// a 15W TDP CPU idling at 20%, one SSD, two memory sticks.
func DefaultPowerModel() PowerModel {
	return PowerModel{
		CPUTDPWatts:      15,
		IdleRatio:        0.2,
		BaseWatts:        10,
		Disks:            DiskCounts{SSD: 1},
		HDDWatts:         6.5,
		SSDWatts:         2.5,
		NVMeWatts:        3.5,
		MemorySticks:     2,
		MemoryStickWatts: 3.0,
	}
}

// EstimateCPUWatts applies the linear model
// idle + (usage/100) * (tdp - idle), with idle = IdleRatio * TDP.
func (m PowerModel) EstimateCPUWatts(cpuPct float64) float64 {
	idle := m.IdleRatio * m.CPUTDPWatts
	return round2(idle + (cpuPct/100.0)*(m.CPUTDPWatts-idle))
}

func (m PowerModel) diskWatts() float64 {
	return float64(m.Disks.HDD)*m.HDDWatts +
		float64(m.Disks.SSD)*m.SSDWatts +
		float64(m.Disks.NVMe)*m.NVMeWatts
}

func (m PowerModel) memoryWatts() float64 {
	return float64(m.MemorySticks) * m.MemoryStickWatts
}

// Estimate returns the full per-component breakdown at a CPU utilization.
func (m PowerModel) Estimate(cpuPct float64) Breakdown {
	cpu := m.EstimateCPUWatts(cpuPct)
	disk := round2(m.diskWatts())
	mem := round2(m.memoryWatts())
	return Breakdown{
		TotalWatts:  round2(m.BaseWatts + cpu + disk + mem),
		BaseWatts:   m.BaseWatts,
		CPUWatts:    cpu,
		DiskWatts:   disk,
		MemoryWatts: mem,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
