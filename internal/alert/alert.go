// Package alert decides when a hotel's availability change warrants a
// notification. One state record exists per (hotel, date range) key; records
// are created lazily and live for the process lifetime.
package alert

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

// Kind labels the transition behind an emitted event.
type Kind int

const (
	BecameAvailable Kind = iota
	Reminder
	NoLongerAvailable
)

func (k Kind) String() string {
	switch k {
	case BecameAvailable:
		return "became_available"
	case Reminder:
		return "reminder"
	case NoLongerAvailable:
		return "no_longer_available"
	default:
		return "unknown"
	}
}

// Event is one alert-worthy transition, carrying the result that caused it.
type Event struct {
	Kind   Kind
	Key    models.AlertKey
	Result models.HotelResult
}

// Evaluator holds alert state and applies the transition rules. Writes come
// from the single polling goroutine; the mutex exists for Snapshot readers.
type Evaluator struct {
	mu     sync.RWMutex
	states map[models.AlertKey]*models.AlertState
	now    func() time.Time
	log    zerolog.Logger
}

func NewEvaluator(log zerolog.Logger) *Evaluator {
	return &Evaluator{
		states: make(map[models.AlertKey]*models.AlertState),
		now:    time.Now,
		log:    log,
	}
}

// WithClock overrides the evaluator's time source.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate applies one round's result for one hotel and returns the events
// to notify, possibly none.
//
// A result that failed to meet the configured requirement never touches
// state: filters hiding offers must not read as the hotel selling out.
// Unknown availability (renderer failure) is likewise excluded from
// transition evaluation entirely, so a fetch hiccup cannot fire a spurious
// "no longer available".
func (e *Evaluator) Evaluate(result models.HotelResult, cfg config.Config) []Event {
	if result.RequirementUnmet {
		return nil
	}
	if result.Available == models.Unknown {
		e.log.Debug().Str("hotel", result.Code).Msg("availability unknown, alert state untouched")
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := models.AlertKey{Code: result.Code, StartDate: cfg.StartDate, EndDate: cfg.EndDate}
	state, ok := e.states[key]
	if !ok {
		state = &models.AlertState{}
		e.states[key] = state
	}

	isAvailable := result.Available == models.Available
	now := e.now()

	// Repeat count 0 still allows one reminder. Observable behavior kept
	// as-is from the previous tracker generation.
	maxRepeat := cfg.AlertRepeat
	if maxRepeat < 1 {
		maxRepeat = 1
	}
	repeatInterval := time.Duration(cfg.AlertRepeatIntervalSec) * time.Second

	var events []Event
	switch {
	case !state.Available && isAvailable:
		state.Sent = 1
		state.Last = now
		events = append(events, Event{Kind: BecameAvailable, Key: key, Result: result})
	case state.Available && isAvailable:
		if state.Sent < maxRepeat && now.Sub(state.Last) >= repeatInterval {
			state.Sent++
			state.Last = now
			events = append(events, Event{Kind: Reminder, Key: key, Result: result})
		}
	case state.Available && !isAvailable:
		state.Sent = 0
		state.Last = now
		events = append(events, Event{Kind: NoLongerAvailable, Key: key, Result: result})
	}

	state.Available = isAvailable
	return events
}

// Snapshot returns a copy of every alert state, keyed for status readers.
func (e *Evaluator) Snapshot() map[models.AlertKey]models.AlertState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[models.AlertKey]models.AlertState, len(e.states))
	for k, v := range e.states {
		out[k] = *v
	}
	return out
}
