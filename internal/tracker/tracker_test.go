package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JellyNekoNeko/toyoko-tracker/internal/config"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/models"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/notifier"
	"github.com/JellyNekoNeko/toyoko-tracker/internal/renderer"
)

type nopRenderer struct{}

func (nopRenderer) Render(context.Context, string) (renderer.Page, error) {
	return renderer.Page{}, nil
}

func (nopRenderer) Close() error { return nil }

type fakeChecker struct {
	mu      sync.Mutex
	checked []string
	result  func(code string) models.HotelResult
}

func (f *fakeChecker) Check(_ context.Context, cfg config.Config, code string) models.HotelResult {
	f.mu.Lock()
	f.checked = append(f.checked, code)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(code)
	}
	price := 7000
	return models.HotelResult{
		Code:      code,
		URL:       "https://example.test/" + code,
		Name:      "Toyoko Inn Test " + code,
		Available: models.Available,
		MinPrice:  &price,
	}
}

func (f *fakeChecker) codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.checked))
	copy(out, f.checked)
	return out
}

func testService(t *testing.T, cfg config.Config, chk *fakeChecker) *Service {
	t.Helper()
	svc := NewService(config.NewStore(cfg), filepath.Join(t.TempDir(), "auto_save.json"), nil, zerolog.Nop())
	svc.newRenderer = func(config.Config, zerolog.Logger) (renderer.Renderer, error) {
		return nopRenderer{}, nil
	}
	svc.newChecker = func(renderer.Renderer, zerolog.Logger) HotelChecker { return chk }
	return svc
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.HotelCodes = []string{"00061", "00250"}
	cfg.PerHotelDelaySeconds = 1
	cfg.LoopIntervalSeconds = 60
	return cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestStartRunsARoundAndPublishesResults(t *testing.T) {
	chk := &fakeChecker{}
	svc := testService(t, testConfig(), chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	defer svc.Stop()

	waitFor(t, func() bool { return len(svc.Status().Results) == 2 })

	st := svc.Status()
	assert.True(t, st.Running)
	assert.Equal(t, []string{"00061", "00250"}, chk.codes()[:2])
	assert.Equal(t, 1, st.Progress.Round)
	assert.Equal(t, 2, st.Progress.Done)
	assert.Equal(t, 2, st.Progress.Total)
	assert.Equal(t, models.Available, st.Results[0].Available)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	chk := &fakeChecker{}
	svc := testService(t, testConfig(), chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	defer svc.Stop()

	_, err = svc.Start(nil)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestStartPayloadIsAppliedAndAutoSaved(t *testing.T) {
	chk := &fakeChecker{}
	cfg := testConfig()
	svc := testService(t, cfg, chk)
	savePath := filepath.Join(t.TempDir(), "auto_save.json")
	svc.autoSavePath = savePath

	applied, err := svc.Start([]byte(`{"people": 2, "hotel_codes": ["00061"]}`))
	require.NoError(t, err)
	defer svc.Stop()

	assert.Equal(t, 2, applied.People)
	assert.Equal(t, []string{"00061"}, applied.HotelCodes)

	var saved config.Config
	ok, err := saved.LoadFile(savePath)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, saved.People)
}

func TestRendererFailureAbortsStart(t *testing.T) {
	chk := &fakeChecker{}
	svc := testService(t, testConfig(), chk)
	svc.newRenderer = func(config.Config, zerolog.Logger) (renderer.Renderer, error) {
		return nil, errors.New("browser not installed")
	}

	_, err := svc.Start(nil)
	require.Error(t, err)
	assert.False(t, svc.Running())
	assert.Empty(t, chk.codes())
}

func TestStopJoinsWorkerAndResetsProgress(t *testing.T) {
	chk := &fakeChecker{}
	svc := testService(t, testConfig(), chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return len(chk.codes()) >= 1 })

	assert.True(t, svc.Stop())
	assert.False(t, svc.Running())

	st := svc.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 0, st.Progress.Round)
	assert.Equal(t, 0, st.Progress.UptimeSec)
	assert.Empty(t, st.Action)
}

func TestStopWhenIdleReturnsFalse(t *testing.T) {
	svc := testService(t, testConfig(), &fakeChecker{})
	assert.False(t, svc.Stop())
}

func TestConcurrentStopIsSafe(t *testing.T) {
	chk := &fakeChecker{}
	svc := testService(t, testConfig(), chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	waitFor(t, func() bool { return len(chk.codes()) >= 1 })

	var stopped atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Stop() {
				stopped.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), stopped.Load(), "exactly one caller performs the shutdown")
	assert.False(t, svc.Running())
}

func TestDispatcherFollowsConfigChangesPerRound(t *testing.T) {
	chk := &fakeChecker{}
	cfg := testConfig()
	cfg.HotelCodes = []string{"00061"}
	cfg.LoopIntervalSeconds = 1
	svc := testService(t, cfg, chk)

	var mu sync.Mutex
	var localEnabled []bool
	svc.newDispatcher = func(cfg config.Config, _ *notifier.Mailer, log zerolog.Logger) *notifier.Dispatcher {
		mu.Lock()
		localEnabled = append(localEnabled, cfg.EnableLocal)
		mu.Unlock()
		return notifier.NewDispatcher(log)
	}

	_, err := svc.Start(nil)
	require.NoError(t, err)
	defer svc.Stop()

	waitFor(t, func() bool { return len(chk.codes()) >= 1 })
	_, err = svc.store.Apply([]byte(`{"enable_local": true}`))
	require.NoError(t, err)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(localEnabled) > 0 && localEnabled[len(localEnabled)-1]
	})

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, localEnabled[0], "first build uses the start-time config")
	assert.True(t, localEnabled[len(localEnabled)-1], "later rounds pick up the new channel set")
}

func TestRoundResultsFeedAlertStates(t *testing.T) {
	chk := &fakeChecker{}
	cfg := testConfig()
	cfg.HotelCodes = []string{"00061"}
	svc := testService(t, cfg, chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	defer svc.Stop()

	waitFor(t, func() bool { return len(svc.AlertStates()) == 1 })

	key := models.AlertKey{Code: "00061", StartDate: cfg.StartDate, EndDate: cfg.EndDate}
	state, ok := svc.AlertStates()[key]
	require.True(t, ok)
	assert.True(t, state.Available)
}

func TestUnknownResultsLeaveAlertStatesAlone(t *testing.T) {
	chk := &fakeChecker{result: func(code string) models.HotelResult {
		return models.DegradedResult(code, "https://example.test/"+code)
	}}
	cfg := testConfig()
	cfg.HotelCodes = []string{"00061"}
	svc := testService(t, cfg, chk)

	_, err := svc.Start(nil)
	require.NoError(t, err)
	defer svc.Stop()

	waitFor(t, func() bool { return len(svc.Status().Results) == 1 })
	assert.Empty(t, svc.AlertStates())
	assert.Equal(t, models.Unknown, svc.Status().Results[0].Available)
}

func TestInvalidStartPayloadLeavesServiceStopped(t *testing.T) {
	svc := testService(t, testConfig(), &fakeChecker{})
	_, err := svc.Start([]byte(`"not an object"`))
	require.Error(t, err)
	assert.False(t, svc.Running())
}
