package alert

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEvaluator(clock *fakeClock) *Evaluator {
	return NewEvaluator(zerolog.Nop()).WithClock(clock.now)
}

func alertConfig() config.Config {
	cfg := config.Default()
	cfg.StartDate = "2026-09-01"
	cfg.EndDate = "2026-09-02"
	cfg.AlertRepeat = 2
	cfg.AlertRepeatIntervalSec = 30
	return cfg
}

func result(code string, avail models.Availability) models.HotelResult {
	return models.HotelResult{Code: code, Available: avail}
}

func key(code string) models.AlertKey {
	return models.AlertKey{Code: code, StartDate: "2026-09-01", EndDate: "2026-09-02"}
}

func TestBecameAvailable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()

	events := ev.Evaluate(result("00001", models.Available), cfg)
	require.Len(t, events, 1)
	assert.Equal(t, BecameAvailable, events[0].Kind)
	assert.Equal(t, key("00001"), events[0].Key)

	state := ev.Snapshot()[key("00001")]
	assert.True(t, state.Available)
	assert.Equal(t, 1, state.Sent)
	assert.Equal(t, clock.t, state.Last)
}

func TestReminderSuppression(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()

	// t=0: became available.
	events := ev.Evaluate(result("00001", models.Available), cfg)
	require.Len(t, events, 1)
	assert.Equal(t, BecameAvailable, events[0].Kind)

	// t=10: inside the repeat interval, suppressed.
	clock.advance(10 * time.Second)
	events = ev.Evaluate(result("00001", models.Available), cfg)
	assert.Empty(t, events)

	// t=50: 50s since last send, first reminder fires.
	clock.advance(40 * time.Second)
	events = ev.Evaluate(result("00001", models.Available), cfg)
	require.Len(t, events, 1)
	assert.Equal(t, Reminder, events[0].Kind)
	assert.Equal(t, 2, ev.Snapshot()[key("00001")].Sent)
}

func TestReminderCapByRepeatCount(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()
	cfg.AlertRepeat = 2

	ev.Evaluate(result("00001", models.Available), cfg) // sent=1
	clock.advance(60 * time.Second)
	events := ev.Evaluate(result("00001", models.Available), cfg) // sent=2
	require.Len(t, events, 1)

	clock.advance(60 * time.Second)
	events = ev.Evaluate(result("00001", models.Available), cfg)
	assert.Empty(t, events, "repeat budget exhausted")
}

func TestRepeatZeroStillAllowsOneReminder(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()
	cfg.AlertRepeat = 0

	ev.Evaluate(result("00001", models.Available), cfg)
	clock.advance(60 * time.Second)
	events := ev.Evaluate(result("00001", models.Available), cfg)
	assert.Empty(t, events, "sent=1 already meets the clamped cap of 1")
}

func TestNoLongerAvailable(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()

	ev.Evaluate(result("00001", models.Available), cfg)
	clock.advance(time.Second)
	events := ev.Evaluate(result("00001", models.Unavailable), cfg)
	require.Len(t, events, 1)
	assert.Equal(t, NoLongerAvailable, events[0].Kind)

	state := ev.Snapshot()[key("00001")]
	assert.False(t, state.Available)
	assert.Equal(t, 0, state.Sent)
}

func TestUnavailableToUnavailableIsQuiet(t *testing.T) {
	ev := newEvaluator(&fakeClock{t: time.Unix(0, 0)})
	cfg := alertConfig()

	assert.Empty(t, ev.Evaluate(result("00001", models.Unavailable), cfg))
	assert.Empty(t, ev.Evaluate(result("00001", models.Unavailable), cfg))
	state := ev.Snapshot()[key("00001")]
	assert.False(t, state.Available)
	assert.Equal(t, 0, state.Sent)
}

func TestUnknownLeavesStateUntouched(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()

	ev.Evaluate(result("00001", models.Available), cfg)
	before := ev.Snapshot()[key("00001")]

	clock.advance(time.Minute)
	events := ev.Evaluate(result("00001", models.Unknown), cfg)
	assert.Empty(t, events, "renderer hiccup must not fire no-longer-available")
	assert.Equal(t, before, ev.Snapshot()[key("00001")])
}

func TestRequirementUnmetSkipsEntirely(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)
	cfg := alertConfig()

	ev.Evaluate(result("00001", models.Available), cfg)
	before := ev.Snapshot()[key("00001")]

	clock.advance(time.Minute)
	unmet := result("00001", models.Unavailable)
	unmet.RequirementUnmet = true
	assert.Empty(t, ev.Evaluate(unmet, cfg))
	assert.Equal(t, before, ev.Snapshot()[key("00001")], "state must not change this round")
}

func TestDistinctDateRangesTrackIndependently(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	ev := newEvaluator(clock)

	cfgA := alertConfig()
	cfgB := alertConfig()
	cfgB.StartDate = "2026-10-01"
	cfgB.EndDate = "2026-10-02"

	eventsA := ev.Evaluate(result("00001", models.Available), cfgA)
	eventsB := ev.Evaluate(result("00001", models.Available), cfgB)
	require.Len(t, eventsA, 1)
	require.Len(t, eventsB, 1)
	assert.Len(t, ev.Snapshot(), 2)
}
