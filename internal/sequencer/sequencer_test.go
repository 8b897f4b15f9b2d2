package sequencer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/droidwrap/droidwrap/internal/logstream"
	"github.com/droidwrap/droidwrap/internal/models"
)

type stubSummarizer struct {
	got  chan []string
	text string
}

func (s *stubSummarizer) Summarize(_ context.Context, messages []string) string {
	s.got <- messages
	return s.text
}

func TestRunEndToEnd(t *testing.T) {
	stream := logstream.NewStream()
	summarizer := &stubSummarizer{got: make(chan []string, 1), text: "report text"}

	seq := New(Config{
		Build: models.BuildConfiguration{
			InputValue: "https://shop.example.com",
			AppName:    "My Cool App",
			Wrapper:    models.WrapperWebView,
			TargetSDK:  34,
		},
		Stages:     []string{"Fetching manifest...", "Compiling resources..."},
		Stream:     stream,
		Summarizer: summarizer,
		Rand:       func() float64 { return 0 },
	})

	require.Equal(t, StateIdle, seq.State())

	ticker := NewManualTicker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, seq.Start(ctx, ticker))
	require.Equal(t, StateRunning, seq.State())

	// A second Start is refused.
	require.ErrorIs(t, seq.Start(ctx, ticker), ErrNotIdle)

	// Two stage ticks plus the completion tick.
	ticker.Tick()
	ticker.Tick()
	ticker.Tick()

	select {
	case <-seq.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run never completed")
	}
	require.Equal(t, StateCompleted, seq.State())
	require.Equal(t, "dist/My_Cool_App-release.apk", seq.OutputPath())

	entries := stream.Snapshot()
	require.Len(t, entries, 7)
	require.Equal(t, "Starting build for https://shop.example.com", entries[0].Message)
	require.Equal(t, "Wrapper strategy: Native WebView Runtime", entries[1].Message)
	require.Equal(t, "Target platform: Android SDK 34", entries[2].Message)
	require.Equal(t, "Fetching manifest...", entries[3].Message)
	require.Equal(t, "Compiling resources...", entries[4].Message)
	require.Equal(t, "Build Successful!", entries[5].Message)
	require.Equal(t, models.LevelSuccess, entries[5].Level)
	require.Equal(t, "Package written to dist/My_Cool_App-release.apk", entries[6].Message)

	// Every entry carries the run ID.
	for _, e := range entries {
		require.Equal(t, seq.RunID(), e.RunID)
	}

	// The summarizer sees the trailing messages of the final stream.
	select {
	case tail := <-summarizer.got:
		require.Equal(t, []string{
			"Starting build for https://shop.example.com",
			"Wrapper strategy: Native WebView Runtime",
			"Target platform: Android SDK 34",
			"Fetching manifest...",
			"Compiling resources...",
			"Build Successful!",
			"Package written to dist/My_Cool_App-release.apk",
		}, tail)
	case <-time.After(2 * time.Second):
		t.Fatal("summarizer never invoked")
	}

	select {
	case <-seq.ReportReady():
	case <-time.After(2 * time.Second):
		t.Fatal("report never resolved")
	}
	report, ready := seq.Report()
	require.True(t, ready)
	require.Equal(t, "report text", report)

	started, finished := seq.Times()
	require.False(t, started.IsZero())
	require.False(t, finished.After(time.Now()))
	require.False(t, finished.Before(started))
}

func TestHeaderFallsBackToPackageName(t *testing.T) {
	stream := logstream.NewStream()
	seq := New(Config{
		Build: models.BuildConfiguration{
			PackageName: "com.example.app",
			Wrapper:     models.WrapperTWA,
			TargetSDK:   33,
		},
		Stream: stream,
		Rand:   func() float64 { return 0 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, seq.Start(ctx, NewManualTicker()))

	entries := stream.Snapshot()
	require.Equal(t, "Starting build for com.example.app", entries[0].Message)
	require.Equal(t, "Wrapper strategy: Trusted Web Activity", entries[1].Message)
}

func TestAbortStopsEmission(t *testing.T) {
	stream := logstream.NewStream()
	seq := New(Config{
		Build:  models.BuildConfiguration{AppName: "X", Wrapper: models.WrapperTWA},
		Stages: []string{"one", "two", "three"},
		Stream: stream,
		Rand:   func() float64 { return 0 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticker := NewManualTicker()
	require.NoError(t, seq.Start(ctx, ticker))
	ticker.Tick()

	seq.Abort()
	require.Equal(t, StateAborted, seq.State())

	select {
	case <-seq.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed after abort")
	}

	// Ticks after abort never emit.
	before := stream.Len()
	ticker.TryTick()
	require.Equal(t, before, stream.Len())

	// No success entries, no output path.
	require.Empty(t, seq.OutputPath())
	for _, e := range stream.Snapshot() {
		require.NotEqual(t, models.LevelSuccess, e.Level)
	}

	// A second abort is a no-op.
	seq.Abort()
}

func TestAbortOnContextCancel(t *testing.T) {
	stream := logstream.NewStream()
	seq := New(Config{
		Build:  models.BuildConfiguration{AppName: "X", Wrapper: models.WrapperTWA},
		Stages: []string{"one", "two"},
		Stream: stream,
		Rand:   func() float64 { return 0 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, seq.Start(ctx, NewManualTicker()))

	cancel()

	select {
	case <-seq.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not abort on context cancellation")
	}
	require.Equal(t, StateAborted, seq.State())
}

func TestReportWithoutSummarizer(t *testing.T) {
	stream := logstream.NewStream()
	seq := New(Config{
		Build:  models.BuildConfiguration{AppName: "X", Wrapper: models.WrapperTWA},
		Stream: stream,
		Rand:   func() float64 { return 0 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, seq.Start(ctx, NewManualTicker()))

	_, ready := seq.Report()
	require.False(t, ready)

	for !seq.Advance() {
	}

	select {
	case <-seq.ReportReady():
	case <-time.After(time.Second):
		t.Fatal("report not resolved without summarizer")
	}
	report, ready := seq.Report()
	require.True(t, ready)
	require.Empty(t, report)
}

func TestReportTailWindow(t *testing.T) {
	stream := logstream.NewStream()
	summarizer := &stubSummarizer{got: make(chan []string, 1), text: "ok"}

	stages := make([]string, 30)
	for i := range stages {
		stages[i] = "stage"
	}

	seq := New(Config{
		Build:      models.BuildConfiguration{AppName: "X", Wrapper: models.WrapperTWA},
		Stages:     stages,
		Stream:     stream,
		Summarizer: summarizer,
		ReportTail: 5,
		Rand:       func() float64 { return 0 },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, seq.Start(ctx, NewManualTicker()))
	for !seq.Advance() {
	}

	select {
	case tail := <-summarizer.got:
		require.Len(t, tail, 5)
		require.Equal(t, "Build Successful!", tail[3])
	case <-time.After(2 * time.Second):
		t.Fatal("summarizer never invoked")
	}
}

func TestStagesForKnownWrappers(t *testing.T) {
	twa, err := StagesFor(models.WrapperTWA)
	require.NoError(t, err)
	require.NotEmpty(t, twa)

	webview, err := StagesFor(models.WrapperWebView)
	require.NoError(t, err)
	require.NotEmpty(t, webview)

	_, err = StagesFor(models.WrapperStrategy("unknown"))
	require.Error(t, err)
}
