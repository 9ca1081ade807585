// Package classify decides whether an uploaded file looks benign, disguised
// (declared extension contradicts its byte content), or like a near-empty
// placeholder script. Classification is a pure function of the event and the
// policy tables compiled at startup.
package classify

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/sniff"
	"go.uber.org/zap"
)

// ErrBadEvent marks an upload event that is missing required fields. Such
// events are rejected and logged; retrying a malformed input cannot succeed.
var ErrBadEvent = errors.New("malformed upload event")

// UploadEvent is the transient input describing one completed user upload.
// Only the derived Finding is retained.
type UploadEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	FilePath  string          `json:"file_path"`
	Extension string          `json:"extension"` // declared, with leading dot; derived from FilePath when empty
	SizeBytes int64           `json:"size_bytes"`
	Signature sniff.Signature `json:"signature"`
}

// Policy holds the compiled classification tables. Built once by the config
// layer and validated there; never re-interpreted per call.
type Policy struct {
	// Canonical maps a content class to the extensions considered native
	// for it. A declared extension inside its signature's canonical set is
	// never spoofing, even when it differs from the exact detected format.
	Canonical map[sniff.Class]map[string]bool

	// Trusted is the set of innocuous-looking declared extensions that an
	// attacker would pick to disguise an executable. Only these can raise
	// an extension-spoofing finding.
	Trusted map[string]bool

	// ScriptMinBytes maps script extensions to the minimum plausible size.
	// Files strictly below their threshold are flagged; boundary-equal
	// sizes pass.
	ScriptMinBytes map[string]int64
}

// Classifier evaluates upload events against a fixed policy.
type Classifier struct {
	policy Policy
	log    *zap.Logger
}

// NewClassifier creates a classifier. The logger receives one raw entry per
// evaluated event, the behavior audit trail the daily report is built from.
func NewClassifier(policy Policy, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{policy: policy, log: log}
}

// Classify evaluates one upload event and returns its finding. Spoofing
// takes precedence over the empty-script rule; at most one finding kind is
// emitted per event.
func (c *Classifier) Classify(ev UploadEvent) (models.Finding, error) {
	if ev.FilePath == "" {
		return models.Finding{}, fmt.Errorf("%w: empty file path", ErrBadEvent)
	}
	if ev.SizeBytes < 0 {
		return models.Finding{}, fmt.Errorf("%w: negative size %d", ErrBadEvent, ev.SizeBytes)
	}

	ext := normalizeExt(ev.Extension, ev.FilePath)
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	c.log.Info("upload event",
		zap.String("path", ev.FilePath),
		zap.String("ext", ext),
		zap.String("signature", ev.Signature.String()),
		zap.Int64("size", ev.SizeBytes),
	)

	f := models.Finding{
		Timestamp:   ts,
		FilePath:    ev.FilePath,
		Kind:        models.FindingNormal,
		DeclaredExt: ext,
		DetectedSig: ev.Signature.String(),
		SizeBytes:   ev.SizeBytes,
	}

	if c.isSpoofed(ext, ev.Signature) {
		f.Kind = models.FindingExtensionSpoofed
		f.Detail = fmt.Sprintf("declared %s but content is %s", ext, ev.Signature)
		return f, nil
	}

	if threshold, ok := c.scriptThreshold(ext); ok && ev.SizeBytes < threshold {
		f.Kind = models.FindingSuspectedEmptyScript
		f.ThresholdBytes = threshold
		f.Detail = fmt.Sprintf("script is %d bytes, below %d byte minimum", ev.SizeBytes, threshold)
		return f, nil
	}

	return f, nil
}

// isSpoofed applies the extension-spoofing rule: the detected content class
// must have a canonical extension set, the declared extension must fall
// outside it, and the declared extension must be one users trust at a
// glance. Unknown content never spoofs.
func (c *Classifier) isSpoofed(ext string, sig sniff.Signature) bool {
	class := sig.Class()
	if class == sniff.ClassUnknown {
		return false
	}
	canonical, ok := c.policy.Canonical[class]
	if !ok || canonical[ext] {
		return false
	}
	return c.policy.Trusted[ext]
}

func (c *Classifier) scriptThreshold(ext string) (int64, bool) {
	threshold, ok := c.policy.ScriptMinBytes[ext]
	return threshold, ok
}

// normalizeExt lower-cases the declared extension and falls back to the
// path when the event did not carry one explicitly.
func normalizeExt(ext, path string) string {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
