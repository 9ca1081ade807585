package handlers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/audit"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/auth"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/scheduler"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAudit(t *testing.T) (*AuditService, *ledger.Ledger, *audit.Pipeline) {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore(), time.UTC, nil)
	classifier := classify.NewClassifier(classify.DefaultPolicy(), nil)
	pipeline := audit.NewPipeline(classifier, l, nil, nil)
	return NewAuditService(l, time.Minute), l, pipeline
}

func TestNasUploadWebhookRecordsFinding(t *testing.T) {
	_, l, pipeline := newTestAudit(t)

	head := base64.StdEncoding.EncodeToString([]byte("MZ\x90\x00 pretend binary"))
	body := fmt.Sprintf(`{
		"timestamp": "2025-06-02T10:00:00Z",
		"file_path": "/vol1/photos/cat.jpg",
		"size_bytes": 48213,
		"head_b64": %q
	}`, head)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/nas/upload", strings.NewReader(body))
	rr := httptest.NewRecorder()
	NasUploadWebhookHandler(pipeline)(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Status string         `json:"status"`
		Data   models.Finding `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, models.FindingExtensionSpoofed, resp.Data.Kind)

	window := l.Query("2025-06-02")
	require.Len(t, window.Findings, 1)
}

func TestNasUploadWebhookRejectsBadPayloads(t *testing.T) {
	_, _, pipeline := newTestAudit(t)
	handler := NasUploadWebhookHandler(pipeline)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{{"},
		{"missing path", `{"size_bytes": 10}`},
		{"negative size", `{"file_path": "/vol1/a.txt", "size_bytes": -1}`},
		{"path traversal", `{"file_path": "/vol1/../etc/passwd", "size_bytes": 10}`},
		{"bad head encoding", `{"file_path": "/vol1/a.txt", "size_bytes": 10, "head_b64": "%%%"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/webhook/nas/upload", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()
			handler(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestGetAuditByDateHandler(t *testing.T) {
	svc, l, _ := newTestAudit(t)

	require.NoError(t, l.RecordFinding(models.Finding{
		Timestamp: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		FilePath:  "/vol1/a.jpg",
		Kind:      models.FindingNormal,
	}))

	router := mux.NewRouter()
	router.HandleFunc("/api/audit/{date}", GetAuditByDateHandler(svc)).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/audit/2025-06-02", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Window  ledger.Window `json:"window"`
			Summary struct {
				FindingCount int `json:"finding_count"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data.Window.Findings, 1)
	assert.Equal(t, 1, resp.Data.Summary.FindingCount)
}

func TestGetAuditByDateHandlerEmptyWindowIsOK(t *testing.T) {
	svc, _, _ := newTestAudit(t)

	router := mux.NewRouter()
	router.HandleFunc("/api/audit/{date}", GetAuditByDateHandler(svc)).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/audit/2020-01-01", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetAuditByDateHandlerRejectsBadDate(t *testing.T) {
	svc, _, _ := newTestAudit(t)

	router := mux.NewRouter()
	router.HandleFunc("/api/audit/{date}", GetAuditByDateHandler(svc)).Methods("GET")

	req := httptest.NewRequest(http.MethodGet, "/api/audit/june-2nd", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type fakeRollups struct {
	statuses  []scheduler.DateStatus
	triggered []string
	err       error
}

func (f *fakeRollups) Status() ([]scheduler.DateStatus, error) { return f.statuses, nil }

func (f *fakeRollups) TriggerDate(date string) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, date)
	return nil
}

func TestTriggerRollupHandler(t *testing.T) {
	rollups := &fakeRollups{}

	router := mux.NewRouter()
	router.HandleFunc("/api/rollups/{date}/trigger", TriggerRollupHandler(rollups)).Methods("POST")

	req := httptest.NewRequest(http.MethodPost, "/api/rollups/2025-06-02/trigger", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"2025-06-02"}, rollups.triggered)
}

func TestTriggerRollupHandlerConflictWhenAlreadyRolled(t *testing.T) {
	rollups := &fakeRollups{err: fmt.Errorf("%w: 2025-06-02", scheduler.ErrAlreadyRolled)}

	router := mux.NewRouter()
	router.HandleFunc("/api/rollups/{date}/trigger", TriggerRollupHandler(rollups)).Methods("POST")

	req := httptest.NewRequest(http.MethodPost, "/api/rollups/2025-06-02/trigger", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestGetRollupsHandler(t *testing.T) {
	rolledAt := time.Date(2025, 6, 3, 0, 30, 0, 0, time.UTC)
	rollups := &fakeRollups{statuses: []scheduler.DateStatus{
		{Date: "2025-06-02", State: "rolled", RolledAt: &rolledAt},
		{Date: "2025-06-03", State: "pending"},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/rollups", nil)
	rr := httptest.NewRecorder()
	GetRollupsHandler(rollups)(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data struct {
			Rollups []scheduler.DateStatus `json:"rollups"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Rollups, 2)
	assert.Equal(t, "rolled", resp.Data.Rollups[0].State)
}

func TestRefreshTokenHandlerRejectsBadTokens(t *testing.T) {
	handler := RefreshTokenHandler(auth.NewService(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	handler(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(`{"token": "not-a-jwt"}`))
	rr = httptest.NewRecorder()
	handler(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
