package handlers

import (
	"net/http"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/monitor"
)

// MonitorService serves live hardware readings for the dashboard
type MonitorService struct {
	Reader monitor.HostReader
	Power  monitor.PowerModel
}

// NewMonitorService creates a new monitor query service
func NewMonitorService(reader monitor.HostReader, power monitor.PowerModel) *MonitorService {
	return &MonitorService{Reader: reader, Power: power}
}

// GetCPUHandler returns the current CPU utilization
func GetCPUHandler(svc *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pct, err := svc.Reader.CPUPercent(r.Context())
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("CPU sensor read failed", http.StatusServiceUnavailable))
			return
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"cpu_pct": pct,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}

// GetMemoryHandler returns the current memory utilization
func GetMemoryHandler(svc *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pct, err := svc.Reader.MemoryPercent(r.Context())
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Memory sensor read failed", http.StatusServiceUnavailable))
			return
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"mem_pct": pct,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}

// GetStorageHandler returns the current storage pool utilization
func GetStorageHandler(svc *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pct, err := svc.Reader.StoragePercent(r.Context())
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Storage sensor read failed", http.StatusServiceUnavailable))
			return
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"storage_pct": pct,
			"time":        time.Now().Format(time.RFC3339),
		})
	}
}

// GetPowerHandler returns the estimated power draw with its per-component
// breakdown, derived from the current CPU utilization
func GetPowerHandler(svc *MonitorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pct, err := svc.Reader.CPUPercent(r.Context())
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("CPU sensor read failed", http.StatusServiceUnavailable))
			return
		}

		breakdown := svc.Power.Estimate(pct)

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"cpu_pct": pct,
			"power":   breakdown,
			"time":    time.Now().Format(time.RFC3339),
		})
	}
}
