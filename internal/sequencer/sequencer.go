// Package sequencer drives the staged build-pipeline simulation: a timed
// sequence of console entries with probabilistic warning injection and a
// terminal success pair, followed by an asynchronous build report.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/droidwrap/droidwrap/internal/logstream"
	"github.com/droidwrap/droidwrap/internal/metrics"
	"github.com/droidwrap/droidwrap/internal/models"
)

// State is the sequencer lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Defaults for the simulation knobs. The reference cadence is one tick per
// 800ms with warnings on draws above 0.8.
const (
	DefaultTickInterval  = 800 * time.Millisecond
	DefaultWarnThreshold = 0.8
	DefaultReportTail    = 20
)

const (
	successMessage = "Build Successful!"
	warnMessage    = "Deprecated API usage detected in generated shim; continuing."
)

// ErrNotIdle is returned when Start is called on a sequencer that already ran.
var ErrNotIdle = errors.New("sequencer has already been started")

// Summarizer produces the post-build report text from the trailing log
// messages. Implementations fail open and never return an error.
type Summarizer interface {
	Summarize(ctx context.Context, messages []string) string
}

// Config assembles a sequencer. Stream and Stages are required.
type Config struct {
	// Build is the frozen configuration snapshot for this run.
	Build models.BuildConfiguration
	// Stages is the ordered staged step list.
	Stages []string
	// Stream receives every entry the run emits.
	Stream *logstream.Stream
	// Publish, when set, additionally fans each entry out live.
	Publish func(models.LogEntry)
	// Summarizer generates the report once the run reaches a terminal
	// state. Optional; without it the report stays empty.
	Summarizer Summarizer
	// WarnThreshold is the draw threshold above which a warning entry is
	// injected before the step entry. Zero selects the default (0.8).
	WarnThreshold float64
	// ReportTail is the number of trailing messages handed to the
	// summarizer. Zero selects the default (20).
	ReportTail int
	// Rand draws uniform values in [0,1). Defaults to math/rand/v2.
	Rand   func() float64
	Logger *slog.Logger
}

// Sequencer executes one build run. Idle → Running → Completed, or
// Running → Aborted on external cancellation. Each tick runs to completion
// before the next is scheduled; entries appear in the stream strictly in
// append order.
type Sequencer struct {
	mu     sync.Mutex
	state  State
	runID  string
	build  models.BuildConfiguration
	stages []string
	cursor int

	stream     *logstream.Stream
	publish    func(models.LogEntry)
	summarizer Summarizer

	warnThreshold float64
	reportTail    int
	random        func() float64
	logger        *slog.Logger

	outputPath  string
	report      string
	startedAt   time.Time
	finishedAt  time.Time
	stopCh      chan struct{}
	done        chan struct{}
	reportReady chan struct{}
}

// New builds an idle sequencer from cfg.
func New(cfg Config) *Sequencer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	threshold := cfg.WarnThreshold
	if threshold == 0 {
		threshold = DefaultWarnThreshold
	}
	tail := cfg.ReportTail
	if tail <= 0 {
		tail = DefaultReportTail
	}
	random := cfg.Rand
	if random == nil {
		random = rand.Float64
	}

	runID := uuid.NewString()
	return &Sequencer{
		state:         StateIdle,
		runID:         runID,
		build:         cfg.Build,
		stages:        cfg.Stages,
		stream:        cfg.Stream,
		publish:       cfg.Publish,
		summarizer:    cfg.Summarizer,
		warnThreshold: threshold,
		reportTail:    tail,
		random:        random,
		logger:        logger.With("component", "sequencer", "run_id", runID),
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		reportReady:   make(chan struct{}),
	}
}

// RunID returns the run's unique identifier.
func (s *Sequencer) RunID() string { return s.runID }

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the run reaches a terminal state.
func (s *Sequencer) Done() <-chan struct{} { return s.done }

// ReportReady is closed once the build report has resolved.
func (s *Sequencer) ReportReady() <-chan struct{} { return s.reportReady }

// Report returns the report text and whether it has resolved yet.
func (s *Sequencer) Report() (string, bool) {
	select {
	case <-s.reportReady:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.report, true
	default:
		return "", false
	}
}

// OutputPath returns the synthetic artifact path of a completed run.
func (s *Sequencer) OutputPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPath
}

// Times returns the run's start and finish timestamps.
func (s *Sequencer) Times() (started, finished time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, s.finishedAt
}

// Start transitions Idle → Running, emits the three header entries, and
// begins consuming ticks from ts. The run stops on completion, on Abort,
// or when ctx is cancelled.
func (s *Sequencer) Start(ctx context.Context, ts TickSource) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	s.state = StateRunning
	s.startedAt = time.Now()

	target := s.build.InputValue
	if target == "" {
		target = s.build.PackageName
	}
	s.appendLocked(models.LevelInfo, fmt.Sprintf("Starting build for %s", target))
	s.appendLocked(models.LevelInfo, fmt.Sprintf("Wrapper strategy: %s", s.build.Wrapper.DisplayName()))
	s.appendLocked(models.LevelInfo, fmt.Sprintf("Target platform: Android SDK %d", s.build.TargetSDK))
	s.mu.Unlock()

	metrics.RunsStarted.Inc()
	s.logger.Info("build run started", "stages", len(s.stages), "wrapper", s.build.Wrapper)

	go s.loop(ctx, ts)
	return nil
}

// loop waits for ticks and applies them until the run terminates.
func (s *Sequencer) loop(ctx context.Context, ts TickSource) {
	defer ts.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Abort()
			return
		case <-s.stopCh:
			return
		case <-ts.Ticks():
			if s.Advance() {
				return
			}
		}
	}
}

// Advance applies one scheduling tick and reports whether the run reached
// a terminal state. Ticks never overlap; each runs to completion under the
// sequencer lock.
func (s *Sequencer) Advance() bool {
	s.mu.Lock()

	if s.state != StateRunning {
		s.mu.Unlock()
		return true
	}

	if s.cursor >= len(s.stages) {
		s.outputPath = fmt.Sprintf("dist/%s-release.apk", OutputBaseName(s.build.AppName))
		s.appendLocked(models.LevelSuccess, successMessage)
		s.appendLocked(models.LevelSuccess, fmt.Sprintf("Package written to %s", s.outputPath))
		s.state = StateCompleted
		s.finishedAt = time.Now()
		close(s.done)
		s.mu.Unlock()

		metrics.RunsCompleted.Inc()
		s.logger.Info("build run completed")
		s.generateReport()
		return true
	}

	// Warning injection is independent per tick and never consumes a
	// step-list slot.
	if s.random() > s.warnThreshold {
		s.appendLocked(models.LevelWarn, warnMessage)
		metrics.WarningsInjected.Inc()
	}

	msg := s.stages[s.cursor]
	s.cursor++
	s.appendLocked(models.LevelInfo, msg)
	s.mu.Unlock()
	return false
}

// Abort cancels a running sequencer. Completed runs are unaffected.
func (s *Sequencer) Abort() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateAborted
	s.finishedAt = time.Now()
	emitted := s.cursor
	close(s.stopCh)
	close(s.done)
	s.mu.Unlock()

	metrics.RunsAborted.Inc()
	s.logger.Info("build run aborted", "emitted", emitted)
	s.generateReport()
}

// generateReport asks the summarizer for the report off the trailing window
// of the live final stream. Failures never affect the terminal state; the
// summarizer fails open to its fallback text.
func (s *Sequencer) generateReport() {
	if s.summarizer == nil {
		close(s.reportReady)
		return
	}

	tail := s.stream.Tail(s.reportTail)
	go func() {
		text := s.summarizer.Summarize(context.Background(), tail)
		s.mu.Lock()
		s.report = text
		s.mu.Unlock()
		close(s.reportReady)
	}()
}

// appendLocked creates and records one entry. Callers hold s.mu, which
// keeps appends strictly sequential within a run.
func (s *Sequencer) appendLocked(level models.Level, message string) {
	e := models.LogEntry{
		ID:        uuid.NewString(),
		RunID:     s.runID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	s.stream.Append(e)
	if s.publish != nil {
		s.publish(e)
	}
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// OutputBaseName derives the synthetic artifact base name from an app name.
// Every run of characters outside [A-Za-z0-9._-], whitespace included,
// collapses to a single underscore.
func OutputBaseName(appName string) string {
	base := unsafePathChars.ReplaceAllString(appName, "_")
	if base == "" {
		base = "app"
	}
	return base
}
