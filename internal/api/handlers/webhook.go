package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/api/utils"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
)

// UploadSink receives webhook upload events. *audit.Pipeline satisfies it.
type UploadSink interface {
	Handle(ev classify.UploadEvent) (models.Finding, error)
}

// uploadWebhookRequest is the payload the NAS firmware posts when a user
// upload completes. HeadB64 carries the file's first bytes for sniffing;
// when absent the handler reads them from the local volume.
type uploadWebhookRequest struct {
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"file_path"`
	Extension string    `json:"extension"`
	SizeBytes int64     `json:"size_bytes"`
	HeadB64   string    `json:"head_b64"`
}

// NasUploadWebhookHandler ingests one completed-upload notification
func NasUploadWebhookHandler(sink UploadSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadWebhookRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid request body", http.StatusBadRequest))
			return
		}

		ev := classify.UploadEvent{
			Timestamp: req.Timestamp,
			FilePath:  req.FilePath,
			Extension: req.Extension,
			SizeBytes: req.SizeBytes,
		}
		if err := utils.ValidateUploadEventData(&ev); err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError(err.Error(), http.StatusBadRequest))
			return
		}

		sig, err := sniffRequest(&req)
		if err != nil {
			utils.SendErrorResponse(w, utils.NewAPIError("Invalid head_b64 encoding", http.StatusBadRequest))
			return
		}
		ev.Signature = sig

		finding, err := sink.Handle(ev)
		if err != nil {
			if errors.Is(err, classify.ErrBadEvent) {
				utils.SendErrorResponse(w, utils.NewAPIError(err.Error(), http.StatusBadRequest))
				return
			}
			var writeErr *ledger.WriteError
			if errors.As(err, &writeErr) {
				utils.SendErrorResponse(w, utils.NewAPIError("Finding could not be durably recorded", http.StatusServiceUnavailable))
				return
			}
			utils.SendErrorResponse(w, utils.NewAPIError("Failed to process upload event", http.StatusInternalServerError))
			return
		}

		utils.SendSuccessResponse(w, http.StatusCreated, finding)
	}
}

// sniffRequest resolves the content signature for a webhook event, from the
// inlined head bytes when given, otherwise from the file on the shared
// volume. A file it cannot read sniffs as unknown rather than failing the
// event.
func sniffRequest(req *uploadWebhookRequest) (sniff.Signature, error) {
	if req.HeadB64 != "" {
		head, err := base64.StdEncoding.DecodeString(req.HeadB64)
		if err != nil {
			return sniff.SigUnknown, err
		}
		if len(head) > sniff.ProbeLen {
			head = head[:sniff.ProbeLen]
		}
		return sniff.Detect(head), nil
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return sniff.SigUnknown, nil
	}
	defer f.Close()

	head := make([]byte, sniff.ProbeLen)
	n, _ := f.Read(head)
	return sniff.Detect(head[:n]), nil
}
