// Package tracker runs the polling worker: one sequential pass over the
// configured hotels per round, alert evaluation and notification fan-out
// after each pass, then a cancellable wait until the next round.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/alert"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/checker"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/metrics"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/notifier"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/renderer"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/scraper"
)

// ErrAlreadyRunning is returned by Start when a worker is active.
var ErrAlreadyRunning = errors.New("tracker already running")

// HotelChecker checks one hotel for one configuration.
type HotelChecker interface {
	Check(ctx context.Context, cfg config.Config, code string) models.HotelResult
}

// Service owns the polling worker lifecycle and the state the control
// surface reads: latest per-hotel results, round progress and the current
// action line.
type Service struct {
	store        *config.Store
	autoSavePath string
	metrics      metrics.Recorder
	log          zerolog.Logger

	evaluator *alert.Evaluator

	// Injection points for tests. Defaults build the real renderer, checker
	// and notification channels for the given configuration.
	newRenderer   func(cfg config.Config, log zerolog.Logger) (renderer.Renderer, error)
	newChecker    func(r renderer.Renderer, log zerolog.Logger) HotelChecker
	newDispatcher func(cfg config.Config, mailer *notifier.Mailer, log zerolog.Logger) *notifier.Dispatcher

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	renderer renderer.Renderer
	mailer   *notifier.Mailer

	stateMu        sync.RWMutex
	results        []models.HotelResult
	action         string
	actionAt       time.Time
	round          int
	roundDone      int
	roundTotal     int
	startedAt      time.Time
	roundStartedAt time.Time
}

func NewService(store *config.Store, autoSavePath string, rec metrics.Recorder, log zerolog.Logger) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		store:        store,
		autoSavePath: autoSavePath,
		metrics:      rec,
		log:          log,
		evaluator:    alert.NewEvaluator(log),
		newRenderer:  renderer.New,
		newChecker: func(r renderer.Renderer, log zerolog.Logger) HotelChecker {
			return checker.New(r, scraper.GetCurrentSelectors(), log)
		},
		newDispatcher: notifier.ForConfig,
	}
}

// Start applies the payload to the stored configuration, acquires the
// browser engine and launches the worker goroutine. A renderer acquisition
// failure aborts the start and leaves the service stopped.
func (s *Service) Start(payload []byte) (config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return config.Config{}, ErrAlreadyRunning
	}

	cfg := s.store.Snapshot()
	if len(payload) > 0 {
		var err error
		cfg, err = s.store.Apply(payload)
		if err != nil {
			return config.Config{}, fmt.Errorf("apply start payload: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if s.autoSavePath != "" {
		if err := cfg.SaveFile(s.autoSavePath); err != nil {
			s.log.Warn().Err(err).Str("path", s.autoSavePath).Msg("auto-save failed")
		}
	}

	r, err := s.newRenderer(cfg, s.log)
	if err != nil {
		return config.Config{}, fmt.Errorf("acquire %s renderer: %w", cfg.Engine, err)
	}

	mailer := notifier.NewMailer(s.log)
	mailer.Start()
	dispatcher := s.newDispatcher(cfg, mailer, s.log)

	ctx, cancel := context.WithCancel(context.Background())
	s.renderer = r
	s.mailer = mailer
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.stateMu.Lock()
	s.results = nil
	s.action = ""
	s.round = 0
	s.roundDone = 0
	s.roundTotal = len(cfg.HotelCodes)
	s.startedAt = time.Now()
	s.roundStartedAt = time.Time{}
	s.stateMu.Unlock()

	dispatcher.Dispatch(ctx, notifier.StartSummary(cfg))
	s.log.Info().Int("hotels", len(cfg.HotelCodes)).Str("engine", cfg.Engine).Msg("tracking started")

	chk := s.newChecker(r, s.log)
	go s.run(ctx, chk, mailer)

	return cfg, nil
}

// Stop cancels the worker, waits for it to exit and releases the renderer
// and mail queue. Returns false when no worker was running. Only the caller
// that observes running flip to false performs cleanup, so concurrent stop
// requests are safe.
func (s *Service) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.running = false
	cancel, done := s.cancel, s.done
	r, mailer := s.renderer, s.mailer
	s.mu.Unlock()

	cancel()
	<-done

	if r != nil {
		if err := r.Close(); err != nil {
			s.log.Warn().Err(err).Msg("renderer close failed")
		}
	}
	mailer.Stop()

	s.mu.Lock()
	s.renderer = nil
	s.mailer = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	s.stateMu.Lock()
	s.action = ""
	s.actionAt = time.Time{}
	s.round = 0
	s.roundDone = 0
	s.roundTotal = 0
	s.startedAt = time.Time{}
	s.roundStartedAt = time.Time{}
	s.stateMu.Unlock()

	s.log.Info().Msg("tracking stopped")
	return true
}

// Running reports whether the worker goroutine is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status is the snapshot served by the control surface.
type Status struct {
	Running      bool                 `json:"running"`
	Config       config.Config        `json:"config"`
	Results      []models.HotelResult `json:"results"`
	Progress     models.Progress      `json:"progress"`
	Action       string               `json:"action"`
	ActionAgeSec int                  `json:"action_age_sec"`
}

func (s *Service) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	prog := models.Progress{
		Round: s.round,
		Done:  s.roundDone,
		Total: s.roundTotal,
	}
	if running && !s.startedAt.IsZero() {
		prog.UptimeSec = int(time.Since(s.startedAt).Seconds())
	}
	if running && !s.roundStartedAt.IsZero() {
		prog.RoundElapsedSec = int(time.Since(s.roundStartedAt).Seconds())
	}

	results := make([]models.HotelResult, len(s.results))
	copy(results, s.results)

	actionAge := 0
	if s.action != "" && !s.actionAt.IsZero() {
		actionAge = int(time.Since(s.actionAt).Seconds())
	}

	return Status{
		Running:      running,
		Config:       s.store.Snapshot(),
		Results:      results,
		Progress:     prog,
		Action:       s.action,
		ActionAgeSec: actionAge,
	}
}

// AlertStates exposes the evaluator state for the status payload.
func (s *Service) AlertStates() map[models.AlertKey]models.AlertState {
	return s.evaluator.Snapshot()
}

func (s *Service) run(ctx context.Context, chk HotelChecker, mailer *notifier.Mailer) {
	defer close(s.done)

	for {
		if ctx.Err() != nil {
			return
		}
		cfg := s.store.Snapshot()
		s.beginRound(len(cfg.HotelCodes))
		s.metrics.RecordRound()

		// Channel set and credentials follow the round's snapshot, so
		// enabling a channel mid-run takes effect on the next round.
		dispatcher := s.newDispatcher(cfg, mailer, s.log)

		results := make([]models.HotelResult, 0, len(cfg.HotelCodes))
		for _, code := range cfg.HotelCodes {
			if ctx.Err() != nil {
				return
			}

			s.setAction(fmt.Sprintf("[search] Checking hotel %s for %s → %s...", code, cfg.StartDate, cfg.EndDate))

			started := time.Now()
			res := chk.Check(ctx, cfg, code)
			s.metrics.RecordCheck(res.Available.String(), time.Since(started))
			if res.Available == models.Unknown {
				s.metrics.RecordRenderFailure()
			}
			results = append(results, res)
			s.incDone()

			if !s.sleep(ctx, time.Duration(cfg.PerHotelDelaySeconds)*time.Second) {
				return
			}
		}

		for _, res := range results {
			for _, ev := range s.evaluator.Evaluate(res, cfg) {
				intent := notifier.ForEvent(ev)
				dispatcher.Dispatch(ctx, intent)
				s.metrics.RecordNotification(ev.Kind.String())
			}
		}

		s.publish(results)
		s.logRound(results)

		s.setAction(fmt.Sprintf("[wait] Next round in %ds...", cfg.LoopIntervalSeconds))
		wait := time.Duration(cfg.LoopIntervalSeconds) * time.Second
		if wait < time.Second {
			wait = time.Second
		}
		if !s.sleep(ctx, wait) {
			return
		}
	}
}

// sleep waits for d or until the context is cancelled. Returns false on
// cancellation so callers can unwind promptly.
func (s *Service) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Service) beginRound(total int) {
	s.stateMu.Lock()
	s.round++
	s.roundDone = 0
	s.roundTotal = total
	s.roundStartedAt = time.Now()
	s.stateMu.Unlock()
}

func (s *Service) incDone() {
	s.stateMu.Lock()
	if s.roundDone < s.roundTotal {
		s.roundDone++
	}
	s.stateMu.Unlock()
}

func (s *Service) setAction(action string) {
	s.stateMu.Lock()
	s.action = action
	s.actionAt = time.Now()
	s.stateMu.Unlock()
}

// publish swaps in the round's results and marks the round complete. The
// order matters: notifications for this round have already been dispatched,
// so status readers never see results that outrun their alerts.
func (s *Service) publish(results []models.HotelResult) {
	s.stateMu.Lock()
	s.results = results
	s.roundDone = s.roundTotal
	s.stateMu.Unlock()
}

func (s *Service) logRound(results []models.HotelResult) {
	available := 0
	unknown := 0
	for _, r := range results {
		switch r.Available {
		case models.Available:
			available++
		case models.Unknown:
			unknown++
		}
		ev := s.log.Debug().Str("code", r.Code).Str("name", r.Name).Str("available", r.Available.String())
		if r.MinPrice != nil {
			ev = ev.Int("min_price", *r.MinPrice)
		}
		ev.Msg("hotel result")
	}

	s.stateMu.RLock()
	round := s.round
	elapsed := time.Since(s.roundStartedAt)
	s.stateMu.RUnlock()

	s.log.Info().
		Int("round", round).
		Int("hotels", len(results)).
		Int("available", available).
		Int("unknown", unknown).
		Dur("elapsed", elapsed).
		Msg("round complete")
}
