// Package monitor samples host utilization on a fixed period and converts
// CPU load into a power estimate through the configured TDP model.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/obs"
	"go.uber.org/zap"
)

// Recorder receives finished samples. Satisfied by *ledger.Ledger.
type Recorder interface {
	RecordSample(models.MetricSample) error
}

// Sampler periodically reads host metrics and appends them to the ledger.
type Sampler struct {
	reader   HostReader
	power    PowerModel
	recorder Recorder
	interval time.Duration
	log      *zap.Logger
	metrics  *obs.Metrics

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewSampler creates a sampler. interval defaults to one minute.
func NewSampler(reader HostReader, power PowerModel, recorder Recorder, interval time.Duration, log *zap.Logger, metrics *obs.Metrics) *Sampler {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sampler{
		reader:     reader,
		power:      power,
		recorder:   recorder,
		interval:   interval,
		log:        log,
		metrics:    metrics,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start begins the sampling loop.
func (s *Sampler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the sampling loop and waits for it to finish.
func (s *Sampler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

func (s *Sampler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sample := s.Sample(s.ctx)
			if err := s.recorder.RecordSample(sample); err != nil {
				if s.metrics != nil {
					s.metrics.LedgerWriteErrors.Inc()
				}
				s.log.Error("failed to record metric sample", zap.Error(err))
				continue
			}
			if s.metrics != nil {
				s.metrics.SamplesTotal.Inc()
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Sample reads all sensors once. A failed read leaves its field nil and is
// logged; a transient sensor failure never stops sampling and there is no
// retry before the next scheduled tick.
func (s *Sampler) Sample(ctx context.Context) models.MetricSample {
	sample := models.MetricSample{Timestamp: time.Now()}

	if cpu, err := s.reader.CPUPercent(ctx); err != nil {
		s.sensorFailed("cpu", err)
	} else {
		sample.CPUPct = &cpu
		watts := s.power.EstimateCPUWatts(cpu)
		sample.EstimatedWatts = &watts
	}

	if mem, err := s.reader.MemoryPercent(ctx); err != nil {
		s.sensorFailed("memory", err)
	} else {
		sample.MemPct = &mem
	}

	if storage, err := s.reader.StoragePercent(ctx); err != nil {
		s.sensorFailed("storage", err)
	} else {
		sample.StoragePct = &storage
	}

	return sample
}

func (s *Sampler) sensorFailed(sensor string, err error) {
	if s.metrics != nil {
		s.metrics.SensorFailures.Inc()
	}
	s.log.Warn("sensor read failed", zap.String("sensor", sensor), zap.Error(err))
}
