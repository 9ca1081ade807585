// Package scheduler drives the once-per-day report rollup. Each calendar
// date moves Pending -> RollupDue -> Rolled; the persisted RollupRecord is
// what makes Rolled terminal, so the at-most-one-report invariant survives
// restarts, re-deployments and clock adjustments.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/ledger"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/models"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/notify"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/obs"
	"github.com/AsdfAlex-learning/fnOS-Overseer/internal/report"
	"go.uber.org/zap"
)

// ErrAlreadyRolled rejects a manual trigger for a date whose report was
// already delivered.
var ErrAlreadyRolled = errors.New("date already rolled up")

// Options configures the rollup service.
type Options struct {
	TriggerHour     int           // local time-of-day the daily report fires
	TriggerMinute   int
	SampleInterval  time.Duration // the sampler period, for energy integration
	DeliveryTimeout time.Duration
	BackoffBase     time.Duration
	BackoffMax      time.Duration
	Grace           time.Duration // retention after rollup before pruning
	CheckInterval   time.Duration // background tick period
	Location        *time.Location
	Now             func() time.Time
}

func (o *Options) applyDefaults() {
	if o.SampleInterval <= 0 {
		o.SampleInterval = time.Minute
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = time.Minute
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Minute
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 15 * time.Minute
	}
	if o.Grace <= 0 {
		o.Grace = 24 * time.Hour
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = 30 * time.Second
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// DateStatus describes one date's rollup state for the dashboard.
type DateStatus struct {
	Date     string     `json:"date"`
	State    string     `json:"state"` // pending, due, failed, rolled
	Attempts int        `json:"attempts,omitempty"`
	LastErr  string     `json:"last_error,omitempty"`
	RolledAt *time.Time `json:"rolled_at,omitempty"`
}

// Service is the daily scheduler/aggregator.
type Service struct {
	opts    Options
	ledger  *ledger.Ledger
	rollups RollupStore
	mailer  notify.Deliverer
	log     *zap.Logger
	metrics *obs.Metrics

	// tickMu makes concurrent ticks (timer overlap, manual trigger)
	// mutually exclusive; the RollupRecord unique index is the backstop.
	tickMu      sync.Mutex
	stateMu     sync.Mutex
	attempts    map[string]int
	nextAttempt map[string]time.Time
	lastErr     map[string]string

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewService creates the rollup scheduler.
func NewService(l *ledger.Ledger, rollups RollupStore, mailer notify.Deliverer, opts Options, log *zap.Logger, metrics *obs.Metrics) *Service {
	opts.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		opts:        opts,
		ledger:      l,
		rollups:     rollups,
		mailer:      mailer,
		log:         log,
		metrics:     metrics,
		attempts:    make(map[string]int),
		nextAttempt: make(map[string]time.Time),
		lastErr:     make(map[string]string),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start runs the background tick loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (s *Service) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

func (s *Service) run() {
	defer s.wg.Done()

	// Catch up immediately on startup so days missed while the process
	// was offline are not delayed until the first tick.
	if err := s.Tick(s.opts.Now()); err != nil {
		s.log.Error("startup rollup check failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Tick(s.opts.Now()); err != nil {
				s.log.Error("rollup tick failed", zap.Error(err))
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// triggerTime is the moment date d's report becomes due: the configured
// trigger time on the following day, after d's window has closed at
// midnight. Rolling up any earlier would freeze a report that the rest
// of the day could still change.
func (s *Service) triggerTime(d string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", d, s.opts.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad ledger date %q: %w", d, err)
	}
	return day.AddDate(0, 0, 1).Add(time.Duration(s.opts.TriggerHour)*time.Hour + time.Duration(s.opts.TriggerMinute)*time.Minute), nil
}

// Tick advances the state machine once. It is a function of the current
// time, the ledger and the rollup table, so tests drive it with a fake
// clock and no timers. Overdue dates are processed oldest first; a day is
// never silently skipped because the process was offline at its trigger
// instant.
func (s *Service) Tick(now time.Time) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	now = now.In(s.opts.Location)
	today := now.Format("2006-01-02")
	pending := 0

	for _, date := range s.ledger.Dates() {
		if date > today {
			// Clock skew can leave samples dated tomorrow; they roll
			// up when their own trigger time arrives.
			continue
		}

		due, err := s.triggerTime(date)
		if err != nil {
			return err
		}
		if now.Before(due) {
			continue // Pending
		}

		rec, err := s.rollups.Get(date)
		if err != nil {
			return err
		}
		if rec != nil {
			// Rolled: terminal. Prune once the grace period is over.
			if now.Sub(rec.GeneratedAt) > s.opts.Grace {
				if err := s.ledger.Prune(date); err != nil {
					s.log.Error("failed to prune rolled-up window", zap.String("date", date), zap.Error(err))
				}
			}
			continue
		}

		// RollupDue.
		pending++
		if next, ok := s.backoffUntil(date); ok && now.Before(next) {
			continue
		}

		if err := s.rollup(date, now); err != nil {
			s.noteFailure(date, now, err)
			if s.metrics != nil {
				s.metrics.DeliveryFailures.Inc()
			}
			s.log.Error("rollup delivery failed",
				zap.String("date", date),
				zap.Int("attempts", s.attemptCount(date)),
				zap.Error(err))
			// Stop here so earlier dates are always delivered before
			// later ones; the remainder is retried next tick.
			break
		}

		pending--
		s.clearFailure(date)
		if s.metrics != nil {
			s.metrics.RollupsTotal.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.PendingDates.Set(float64(pending))
	}
	return nil
}

// rollup reads a consistent snapshot of the date, assembles the report and
// hands it to the mail collaborator. The RollupRecord is written only
// after successful delivery.
func (s *Service) rollup(date string, now time.Time) error {
	window := s.ledger.Query(date)
	payload := report.Assemble(window, s.opts.SampleInterval)

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.DeliveryTimeout)
	defer cancel()

	ref, err := s.mailer.Deliver(ctx, payload)
	if err != nil {
		return err
	}

	rec := &models.RollupRecord{Date: date, GeneratedAt: now, ArtifactRef: ref}
	if err := s.rollups.Put(rec); err != nil {
		// Delivery happened but the anchor write failed; surfacing this
		// is the lesser evil compared to re-sending forever.
		return fmt.Errorf("report for %s delivered but rollup record not persisted: %w", date, err)
	}

	s.log.Info("daily rollup complete",
		zap.String("date", date),
		zap.Int("samples", payload.SampleCount),
		zap.Int("findings", payload.FindingCount),
		zap.String("artifact", ref))
	return nil
}

// TriggerDate runs the rollup path for one date on demand (dashboard
// "send now"). The idempotency guard applies exactly as for timed runs.
func (s *Service) TriggerDate(date string) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	rec, err := s.rollups.Get(date)
	if err != nil {
		return err
	}
	if rec != nil {
		return fmt.Errorf("%w: %s (at %s)", ErrAlreadyRolled, date, rec.GeneratedAt.Format(time.RFC3339))
	}

	now := s.opts.Now().In(s.opts.Location)
	if err := s.rollup(date, now); err != nil {
		s.noteFailure(date, now, err)
		if s.metrics != nil {
			s.metrics.DeliveryFailures.Inc()
		}
		return err
	}
	s.clearFailure(date)
	if s.metrics != nil {
		s.metrics.RollupsTotal.Inc()
	}
	return nil
}

// Status reports the rollup state of every known date for the dashboard.
func (s *Service) Status() ([]DateStatus, error) {
	now := s.opts.Now().In(s.opts.Location)

	recs, err := s.rollups.List()
	if err != nil {
		return nil, err
	}
	rolled := make(map[string]models.RollupRecord, len(recs))
	for _, rec := range recs {
		rolled[rec.Date] = rec
	}

	var out []DateStatus
	seen := make(map[string]bool)
	for _, date := range s.ledger.Dates() {
		seen[date] = true
		out = append(out, s.dateStatus(date, now, rolled))
	}
	for _, rec := range recs {
		if !seen[rec.Date] {
			generatedAt := rec.GeneratedAt
			out = append(out, DateStatus{Date: rec.Date, State: "rolled", RolledAt: &generatedAt})
		}
	}
	return out, nil
}

func (s *Service) dateStatus(date string, now time.Time, rolled map[string]models.RollupRecord) DateStatus {
	if rec, ok := rolled[date]; ok {
		generatedAt := rec.GeneratedAt
		return DateStatus{Date: date, State: "rolled", RolledAt: &generatedAt}
	}

	due, err := s.triggerTime(date)
	if err != nil || now.Before(due) {
		return DateStatus{Date: date, State: "pending"}
	}

	st := DateStatus{Date: date, State: "due", Attempts: s.attemptCount(date)}
	s.stateMu.Lock()
	if msg, ok := s.lastErr[date]; ok {
		st.State = "failed"
		st.LastErr = msg
	}
	s.stateMu.Unlock()
	return st
}

func (s *Service) backoffUntil(date string) (time.Time, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	t, ok := s.nextAttempt[date]
	return t, ok
}

func (s *Service) attemptCount(date string) int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.attempts[date]
}

func (s *Service) noteFailure(date string, now time.Time, err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.attempts[date]++
	s.lastErr[date] = err.Error()

	backoff := s.opts.BackoffBase << (s.attempts[date] - 1)
	if backoff > s.opts.BackoffMax || backoff <= 0 {
		backoff = s.opts.BackoffMax
	}
	s.nextAttempt[date] = now.Add(backoff)
}

func (s *Service) clearFailure(date string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	delete(s.attempts, date)
	delete(s.nextAttempt, date)
	delete(s.lastErr, date)
}
