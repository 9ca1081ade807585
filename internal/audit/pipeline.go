// Package audit wires the classifier to the ledger. Both ingest paths
// (the NAS webhook and the filesystem watcher) feed the same pipeline so
// an upload is judged and recorded identically regardless of how it was
// observed.
package audit

import (
	"errors"

	"go.uber.org/zap"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/classify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/obs"
)

// Pipeline classifies upload events and appends the resulting findings
// to the audit ledger.
type Pipeline struct {
	classifier *classify.Classifier
	ledger     *ledger.Ledger
	log        *zap.Logger
	metrics    *obs.Metrics
}

func NewPipeline(classifier *classify.Classifier, l *ledger.Ledger, log *zap.Logger, metrics *obs.Metrics) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{classifier: classifier, ledger: l, log: log, metrics: metrics}
}

// Handle classifies one upload event and records the finding. Malformed
// events come back as classify.ErrBadEvent; a ledger.WriteError means the
// finding was judged but could not be durably recorded.
func (p *Pipeline) Handle(ev classify.UploadEvent) (models.Finding, error) {
	finding, err := p.classifier.Classify(ev)
	if err != nil {
		if errors.Is(err, classify.ErrBadEvent) && p.metrics != nil {
			p.metrics.EventsRejected.Inc()
		}
		p.log.Warn("rejected upload event",
			zap.String("path", ev.FilePath),
			zap.Error(err))
		return models.Finding{}, err
	}

	if err := p.ledger.RecordFinding(finding); err != nil {
		if p.metrics != nil {
			p.metrics.LedgerWriteErrors.Inc()
		}
		return models.Finding{}, err
	}

	if p.metrics != nil {
		p.metrics.FindingsTotal.WithLabelValues(string(finding.Kind)).Inc()
	}
	if finding.Kind != models.FindingNormal {
		p.log.Warn("suspicious upload recorded",
			zap.String("path", finding.FilePath),
			zap.String("kind", string(finding.Kind)),
			zap.String("detail", finding.Detail))
	}
	return finding, nil
}
