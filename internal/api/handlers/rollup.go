package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/scheduler"
	"github.com/gorilla/mux"
)

// RollupController is the scheduler surface the dashboard drives.
// *scheduler.Service satisfies it.
type RollupController interface {
	Status() ([]scheduler.DateStatus, error)
	TriggerDate(date string) error
}

// GetRollupsHandler returns the rollup state of every known date
func GetRollupsHandler(svc RollupController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses, err := svc.Status()
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Failed to retrieve rollup status", http.StatusInternalServerError))
			return
		}

		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{"rollups": statuses})
	}
}

// TriggerRollupHandler forces the rollup of one date ("send now"). A date
// that is already rolled up is rejected, never re-delivered.
func TriggerRollupHandler(svc RollupController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		date := vars["date"]
		if _, err := time.Parse("2006-01-02", date); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid date, expected YYYY-MM-DD", http.StatusBadRequest))
			return
		}

		if err := svc.TriggerDate(date); err != nil {
			if errors.Is(err, scheduler.ErrAlreadyRolled) {
				utils.SendErrorResponse(w, utils.NewAPIError(err.Error(), http.StatusConflict))
				return
			}
			utils.SendErrorResponse(w, utils.NewAPIError(err.Error(), http.StatusBadGateway))
			return
		}

		utils.SendSuccessResponseWithMessage(w, "rollup delivered", map[string]string{"date": date})
	}
}
