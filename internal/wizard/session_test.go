package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/droidwrap/droidwrap/internal/analysis"
	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/sequencer"
	"github.com/droidwrap/droidwrap/internal/store/memory"
	"github.com/droidwrap/droidwrap/internal/workflow"
)

// testHarness wires a manager with a manual tick source and deterministic
// (warning-free) runs.
type testHarness struct {
	mgr    *Manager
	store  *memory.MemoryStore
	ticker *sequencer.ManualTicker
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	h := &testHarness{store: memory.NewMemoryStore()}
	h.mgr = NewManager(Deps{
		Store:   h.store,
		Adapter: analysis.NewAdapter(analysis.NewHeuristicGenerator(), nil),
		// A threshold of 1 means a [0,1) draw can never exceed it.
		WarnThreshold: 1.0,
		NewTickSource: func() sequencer.TickSource {
			h.ticker = sequencer.NewManualTicker()
			return h.ticker
		},
	})
	t.Cleanup(func() { h.mgr.Shutdown(context.Background()) })
	return h
}

// driveRun ticks the active run to completion and waits for it to finish.
func (h *testHarness) driveRun(t *testing.T, sess *Session) {
	t.Helper()

	stages, err := sequencer.StagesFor(sess.Config().Wrapper)
	require.NoError(t, err)

	for i := 0; i <= len(stages); i++ {
		h.ticker.Tick()
	}
	select {
	case <-sess.RunDone():
	case <-time.After(2 * time.Second):
		t.Fatal("run never finished")
	}
}

// waitReport polls until the session report resolves.
func waitReport(t *testing.T, sess *Session) string {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if report, ready := sess.Report(); ready {
			return report
		}
		select {
		case <-deadline:
			t.Fatal("report never resolved")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// waitPersisted polls the store until the run record lands.
func (h *testHarness) waitPersisted(t *testing.T, runID string) *models.BuildRun {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		run, err := h.store.Runs().Get(context.Background(), runID)
		if err == nil {
			return run
		}
		select {
		case <-deadline:
			t.Fatal("run never persisted")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// waitLogs polls the store until the run's log snapshot lands.
func (h *testHarness) waitLogs(t *testing.T, runID string) []models.LogEntry {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		entries, err := h.store.Logs().List(context.Background(), runID)
		if err == nil {
			return entries
		}
		select {
		case <-deadline:
			t.Fatal("run logs never persisted")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWizardFullFlow(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	require.Equal(t, workflow.StepSource, sess.Step())

	// Empty input is refused without side effects.
	_, err := sess.Analyze(context.Background(), "   ", models.InputKindURL)
	require.ErrorIs(t, err, ErrEmptyInput)
	require.Equal(t, workflow.StepSource, sess.Step())

	res, err := sess.Analyze(context.Background(), "https://shop.example.com", models.InputKindURL)
	require.NoError(t, err)
	require.Equal(t, workflow.StepConfiguration, sess.Step())

	// Analysis seeds the configuration defaults.
	cfg := sess.Config()
	require.Equal(t, res.SuggestedPackage, cfg.PackageName)
	require.Equal(t, res.DetectedName, cfg.AppName)
	require.Equal(t, models.WrapperWebView, cfg.Wrapper)
	require.Equal(t, "1.0.0", cfg.VersionName)
	require.Equal(t, 1, cfg.VersionCode)
	require.Equal(t, 34, cfg.TargetSDK)

	// Analyze is only available from the source step.
	_, err = sess.Analyze(context.Background(), "https://other.example.com", models.InputKindURL)
	require.ErrorIs(t, err, ErrWrongStep)

	cfg.AppName = "Shop App"
	require.NoError(t, sess.UpdateConfig(cfg))

	require.NoError(t, sess.StartBuild())
	require.Equal(t, workflow.StepBuildOutput, sess.Step())

	h.driveRun(t, sess)

	state := sess.State()
	require.NotNil(t, state.Run)
	require.Equal(t, sequencer.StateCompleted, state.Run.Status)
	require.Equal(t, "dist/Shop_App-release.apk", state.Run.OutputPath)

	// Warning-free run: headers, stages, success pair.
	stages, err := sequencer.StagesFor(cfg.Wrapper)
	require.NoError(t, err)
	entries := sess.Logs()
	require.Len(t, entries, 3+len(stages)+2)
	for _, e := range entries {
		require.NotEqual(t, models.LevelWarn, e.Level)
	}

	report := waitReport(t, sess)
	require.NotEmpty(t, report)

	// The finished run and its log snapshot are persisted.
	run := h.waitPersisted(t, state.Run.RunID)
	require.Equal(t, sess.ID, run.SessionID)
	require.Equal(t, models.RunStatusCompleted, run.Status)
	require.Equal(t, "Shop App", run.AppName)

	persisted := h.waitLogs(t, run.ID)
	require.Len(t, persisted, len(entries))
}

func TestStartBuildRequiresConfigurationStep(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	require.ErrorIs(t, sess.StartBuild(), ErrWrongStep)
	require.Equal(t, workflow.StepSource, sess.Step())
}

func TestUpdateConfigRequiresConfigurationStep(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	err := sess.UpdateConfig(models.BuildConfiguration{Wrapper: models.WrapperTWA})
	require.ErrorIs(t, err, ErrWrongStep)
}

func TestBackIsNoOpOutsideConfiguration(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	require.False(t, sess.Back())
	require.Equal(t, workflow.StepSource, sess.Step())

	_, err := sess.Analyze(context.Background(), "https://example.com", models.InputKindURL)
	require.NoError(t, err)
	require.True(t, sess.Back())
	require.Equal(t, workflow.StepSource, sess.Step())
}

func TestConfigureRefusedWhileRunning(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	_, err := sess.Analyze(context.Background(), "https://example.com", models.InputKindURL)
	require.NoError(t, err)
	require.NoError(t, sess.StartBuild())

	// The run is still ticking; going back is refused as a no-op.
	require.False(t, sess.Configure())
	require.Equal(t, workflow.StepBuildOutput, sess.Step())

	h.driveRun(t, sess)

	require.True(t, sess.Configure())
	require.Equal(t, workflow.StepConfiguration, sess.Step())
}

func TestAbortedRunIsPersistedAsAborted(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	_, err := sess.Analyze(context.Background(), "https://example.com", models.InputKindURL)
	require.NoError(t, err)
	require.NoError(t, sess.StartBuild())

	h.ticker.Tick()
	sess.Abort()

	state := sess.State()
	require.NotNil(t, state.Run)

	run := h.waitPersisted(t, state.Run.RunID)
	require.Equal(t, models.RunStatusAborted, run.Status)
	require.Empty(t, run.OutputPath)
}

func TestRestartIsolatesRuns(t *testing.T) {
	h := newHarness(t)
	sess := h.mgr.Create()

	_, err := sess.Analyze(context.Background(), "https://example.com", models.InputKindURL)
	require.NoError(t, err)
	require.NoError(t, sess.StartBuild())

	firstRunID := sess.State().Run.RunID
	h.ticker.Tick()
	sess.Abort()

	require.True(t, sess.Configure())
	require.NoError(t, sess.StartBuild())

	secondRunID := sess.State().Run.RunID
	require.NotEqual(t, firstRunID, secondRunID)

	h.driveRun(t, sess)

	// The console only holds second-run entries, and so does its snapshot.
	for _, e := range sess.Logs() {
		require.Equal(t, secondRunID, e.RunID)
	}

	h.waitPersisted(t, secondRunID)
	for _, e := range h.waitLogs(t, secondRunID) {
		require.Equal(t, secondRunID, e.RunID)
	}
}

func TestManagerSessionLookup(t *testing.T) {
	h := newHarness(t)

	sess := h.mgr.Create()
	got, err := h.mgr.Get(sess.ID)
	require.NoError(t, err)
	require.Same(t, sess, got)

	_, err = h.mgr.Get("missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
