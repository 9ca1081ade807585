package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/report"
	"github.com/gorilla/mux"
)

// AuditService handles audit ledger queries for the dashboard
type AuditService struct {
	Ledger         *ledger.Ledger
	SampleInterval time.Duration
}

// NewAuditService creates a new audit query service
func NewAuditService(l *ledger.Ledger, sampleInterval time.Duration) *AuditService {
	return &AuditService{Ledger: l, SampleInterval: sampleInterval}
}

type auditResponse struct {
	Window  ledger.Window  `json:"window"`
	Summary report.Payload `json:"summary"`
	Cursor  *ledger.Cursor `json:"cursor,omitempty"`
}

// GetTodayAuditHandler returns the current day's window. With cursor query
// parameters it returns only the records appended since the last read.
func GetTodayAuditHandler(svc *AuditService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := svc.Ledger.DateKey(time.Now())

		sampleCur, err1 := cursorParam(r, "sample_cursor")
		findingCur, err2 := cursorParam(r, "finding_cursor")
		if err1 != nil || err2 != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid cursor", http.StatusBadRequest))
			return
		}

		var resp auditResponse
		if sampleCur > 0 || findingCur > 0 {
			window, next := svc.Ledger.QuerySince(date, ledger.Cursor{SampleIndex: sampleCur, FindingIndex: findingCur})
			resp = auditResponse{Window: window, Cursor: &next}
		} else {
			window := svc.Ledger.Query(date)
			next := ledger.Cursor{SampleIndex: len(window.Samples), FindingIndex: len(window.Findings)}
			resp = auditResponse{
				Window:  window,
				Summary: report.Assemble(window, svc.SampleInterval),
				Cursor:  &next,
			}
		}

		utils.SendSuccessResponse(w, http.StatusOK, resp)
	}
}

// GetAuditByDateHandler returns a past date's window with its summary
func GetAuditByDateHandler(svc *AuditService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		date := vars["date"]
		if _, err := time.Parse("2006-01-02", date); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid date, expected YYYY-MM-DD", http.StatusBadRequest))
			return
		}

		// An empty window is a valid result: a day with no recorded
		// activity, or one already pruned after its rollup.
		window := svc.Ledger.Query(date)
		resp := auditResponse{
			Window:  window,
			Summary: report.Assemble(window, svc.SampleInterval),
		}

		utils.SendSuccessResponse(w, http.StatusOK, resp)
	}
}

// GetAuditDatesHandler lists every date the ledger currently holds
func GetAuditDatesHandler(svc *AuditService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.SendSuccessResponse(w, http.StatusOK, map[string]any{"dates": svc.Ledger.Dates()})
	}
}

func cursorParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("cursor must not be negative")
	}
	return v, nil
}
