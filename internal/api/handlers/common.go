package handlers

import (
	"net/http"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
)

// HealthHandler is a simple health check endpoint
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendErrorResponse(w, utils.NewAPIError("Method not allowed", http.StatusMethodNotAllowed))
		return
	}

	utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
		"time":    time.Now().Format(time.RFC3339),
		"service": "fnos-overseer",
	})
}

// GetDashboardStatsHandler returns dashboard statistics
func GetDashboardStatsHandler(auditSvc *AuditService, rollupSvc RollupController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := auditSvc.Ledger.DateKey(time.Now())
		window := auditSvc.Ledger.Query(today)

		var flagged int
		for _, f := range window.Findings {
			if f.Kind != models.FindingNormal {
				flagged++
			}
		}

		var failed, pending int
		if statuses, err := rollupSvc.Status(); err == nil {
			for _, st := range statuses {
				switch st.State {
				case "failed":
					failed++
				case "due", "pending":
					pending++
				}
			}
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{
			"date":            today,
			"today_samples":   len(window.Samples),
			"today_findings":  len(window.Findings),
			"today_flagged":   flagged,
			"rollups_failed":  failed,
			"rollups_pending": pending,
			"last_updated":    time.Now(),
		})
	}
}
