package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// SensorError marks a transient failure reading one host sensor. The
// sampler records the cycle's sample with a null field instead of aborting.
type SensorError struct {
	Sensor string
	Err    error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("sensor %s read failed: %v", e.Sensor, e.Err)
}

func (e *SensorError) Unwrap() error {
	return e.Err
}

// HostReader reads instantaneous utilization figures from the host. All
// reads are bounded by the caller's context.
type HostReader interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	StoragePercent(ctx context.Context) (float64, error)
}

// ProcReader reads utilization from /proc and the storage mountpoint.
type ProcReader struct {
	fs       procfs.FS
	mount    string
	cpuDelta time.Duration
}

// NewProcReader creates a host reader over /proc. mount is the volume whose
// utilization represents "storage" for the appliance, typically the data
// volume root.
func NewProcReader(mount string) (*ProcReader, error) {
	fs, err := procfs.NewFS(procfs.DefaultMountPoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	if mount == "" {
		mount = "/"
	}
	return &ProcReader{fs: fs, mount: mount, cpuDelta: 250 * time.Millisecond}, nil
}

// CPUPercent derives utilization from two /proc/stat reads a short delta
// apart.
func (r *ProcReader) CPUPercent(ctx context.Context) (float64, error) {
	first, err := r.fs.Stat()
	if err != nil {
		return 0, &SensorError{Sensor: "cpu", Err: err}
	}

	select {
	case <-time.After(r.cpuDelta):
	case <-ctx.Done():
		return 0, &SensorError{Sensor: "cpu", Err: ctx.Err()}
	}

	second, err := r.fs.Stat()
	if err != nil {
		return 0, &SensorError{Sensor: "cpu", Err: err}
	}

	busy, total := cpuBusyTotal(second.CPUTotal)
	prevBusy, prevTotal := cpuBusyTotal(first.CPUTotal)
	dTotal := total - prevTotal
	if dTotal <= 0 {
		return 0, nil
	}
	pct := (busy - prevBusy) / dTotal * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

func (r *ProcReader) MemoryPercent(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &SensorError{Sensor: "memory", Err: err}
	}
	info, err := r.fs.Meminfo()
	if err != nil {
		return 0, &SensorError{Sensor: "memory", Err: err}
	}
	if info.MemTotal == nil || info.MemAvailable == nil || *info.MemTotal == 0 {
		return 0, &SensorError{Sensor: "memory", Err: fmt.Errorf("meminfo missing totals")}
	}
	used := float64(*info.MemTotal-*info.MemAvailable) / float64(*info.MemTotal) * 100
	return used, nil
}

func (r *ProcReader) StoragePercent(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &SensorError{Sensor: "storage", Err: err}
	}
	var st unix.Statfs_t
	if err := unix.Statfs(r.mount, &st); err != nil {
		return 0, &SensorError{Sensor: "storage", Err: err}
	}
	used := st.Blocks - st.Bfree
	usable := used + st.Bavail
	if usable == 0 {
		return 0, &SensorError{Sensor: "storage", Err: fmt.Errorf("statfs reported no blocks for %s", r.mount)}
	}
	return float64(used) / float64(usable) * 100, nil
}

func cpuBusyTotal(c procfs.CPUStat) (busy, total float64) {
	idle := c.Idle + c.Iowait
	busy = c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	return busy, busy + idle
}
