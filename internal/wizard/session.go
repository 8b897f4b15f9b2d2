// Package wizard owns the per-browser-session state container: the
// workflow machine, the console stream, the editable configuration, and
// the active build run. UI layers talk to sessions through commands; no
// ambient mutable state leaks out.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/droidwrap/droidwrap/internal/analysis"
	"github.com/droidwrap/droidwrap/internal/logstream"
	"github.com/droidwrap/droidwrap/internal/models"
	"github.com/droidwrap/droidwrap/internal/sequencer"
	"github.com/droidwrap/droidwrap/internal/workflow"
)

// Command errors. Invalid workflow transitions are not errors (they are
// no-ops); these cover shell-level refusals.
var (
	ErrEmptyInput = errors.New("input value is empty")
	ErrWrongStep  = errors.New("action not available in the current step")
	ErrRunActive  = errors.New("a build run is in progress")
)

// Session is one user's pass through the wizard.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	machine  *workflow.Machine
	stream   *logstream.Stream
	config   models.BuildConfiguration
	analysis *models.AnalysisResult
	seq      *sequencer.Sequencer

	mgr    *Manager
	logger *slog.Logger
}

// RunState describes the session's current (or last) build run.
type RunState struct {
	RunID       string          `json:"run_id"`
	Status      sequencer.State `json:"status"`
	ReportReady bool            `json:"report_ready"`
	OutputPath  string          `json:"output_path,omitempty"`
}

// State is the read-only snapshot handed to the UI layer.
type State struct {
	ID             string                    `json:"id"`
	Step           string                    `json:"step"`
	AllowedActions []workflow.Action         `json:"allowed_actions"`
	Config         models.BuildConfiguration `json:"config"`
	Analysis       *models.AnalysisResult    `json:"analysis,omitempty"`
	Run            *RunState                 `json:"run,omitempty"`
	LogCount       int                       `json:"log_count"`
}

// Step returns the active workflow step.
func (s *Session) Step() workflow.Step {
	return s.machine.Current()
}

// State returns a snapshot of the session for the UI.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.machine.Current()
	st := State{
		ID:             s.ID,
		Step:           step.String(),
		AllowedActions: workflow.AllowedActions(step),
		Config:         s.config,
		Analysis:       s.analysis,
		LogCount:       s.stream.Len(),
	}
	if s.seq != nil {
		_, ready := s.seq.Report()
		st.Run = &RunState{
			RunID:       s.seq.RunID(),
			Status:      s.seq.State(),
			ReportReady: ready,
			OutputPath:  s.seq.OutputPath(),
		}
	}
	return st
}

// Analyze runs the analysis adapter over the user's input and, on the
// fail-open result, seeds configuration defaults and advances the workflow
// to the configuration step. Empty input is refused without side effects.
func (s *Session) Analyze(ctx context.Context, input string, kind models.InputKind) (models.AnalysisResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return models.AnalysisResult{}, ErrEmptyInput
	}
	if s.machine.Current() != workflow.StepSource {
		return models.AnalysisResult{}, ErrWrongStep
	}
	if kind == "" {
		kind = models.InputKindURL
	}

	// The adapter fails open; this never blocks the workflow.
	res := s.mgr.deps.Adapter.Analyze(ctx, input, kind)

	s.mu.Lock()
	s.analysis = &res
	s.config = seedConfiguration(input, kind, res)
	s.mu.Unlock()

	s.machine.Apply(workflow.ActionAnalyzed)
	s.logger.Info("analysis resolved",
		"is_pwa", res.IsPWA,
		"suggested_package", res.SuggestedPackage,
	)
	return res, nil
}

// seedConfiguration derives the initial configuration from an analysis
// result. The wrapper default follows the PWA flag; the user may override
// everything afterwards.
func seedConfiguration(input string, kind models.InputKind, res models.AnalysisResult) models.BuildConfiguration {
	wrapper := models.WrapperWebView
	if res.IsPWA {
		wrapper = models.WrapperTWA
	}
	return models.BuildConfiguration{
		InputType:    kind,
		InputValue:   input,
		Wrapper:      wrapper,
		PackageName:  res.SuggestedPackage,
		AppName:      res.DetectedName,
		VersionName:  "1.0.0",
		VersionCode:  1,
		PrimaryColor: "#3b82f6",
		TargetSDK:    34,
	}
}

// UpdateConfig replaces the editable configuration. Only valid during the
// configuration step; the running sequencer never sees these edits because
// it works off a frozen snapshot.
func (s *Session) UpdateConfig(cfg models.BuildConfiguration) error {
	if s.machine.Current() != workflow.StepConfiguration {
		return ErrWrongStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	return nil
}

// Config returns a copy of the current configuration.
func (s *Session) Config() models.BuildConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Back returns from configuration to source selection. Invalid requests
// are no-ops.
func (s *Session) Back() bool {
	return s.machine.Apply(workflow.ActionBack)
}

// Configure returns from the build console to configuration. Refused as a
// no-op while a run is ticking.
func (s *Session) Configure() bool {
	s.mu.Lock()
	running := s.seq != nil && s.seq.State() == sequencer.StateRunning
	s.mu.Unlock()
	if running {
		return false
	}
	return s.machine.Apply(workflow.ActionConfigure)
}

// StartBuild freezes the configuration, moves to the build console, and
// starts the sequencer. Only valid from the configuration step.
func (s *Session) StartBuild() error {
	if s.machine.Current() != workflow.StepConfiguration {
		return ErrWrongStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startRunLocked(); err != nil {
		return err
	}
	s.machine.Apply(workflow.ActionStartBuild)
	return nil
}

// startRunLocked stops any pending ticking from a prior run, resets the
// stream, and starts a fresh sequencer on a frozen configuration copy.
// Stopping before clearing is what prevents cross-run entry interleaving.
func (s *Session) startRunLocked() error {
	if s.seq != nil && s.seq.State() == sequencer.StateRunning {
		s.seq.Abort()
	}
	s.stream.Release()
	if err := s.stream.Clear(); err != nil {
		return err
	}

	stages, err := sequencer.StagesFor(s.config.Wrapper)
	if err != nil {
		return err
	}
	if err := s.stream.Acquire(); err != nil {
		return err
	}

	frozen := s.config
	seq := sequencer.New(sequencer.Config{
		Build:      frozen,
		Stages:     stages,
		Stream:     s.stream,
		Publish:    func(e models.LogEntry) { s.mgr.deps.Broker.Publish(s.ID, e) },
		Summarizer: s.mgr.deps.Adapter,
		WarnThreshold: s.mgr.deps.WarnThreshold,
		ReportTail:    s.mgr.deps.ReportTail,
		Logger:        s.logger,
	})

	if err := seq.Start(s.mgr.baseCtx, s.mgr.newTickSource()); err != nil {
		s.stream.Release()
		return err
	}
	s.seq = seq
	go s.finishRun(seq, frozen)
	return nil
}

// finishRun waits for the run and its report to resolve, then persists the
// run record and log snapshot. Persistence failures are logged, never
// surfaced to the workflow.
func (s *Session) finishRun(seq *sequencer.Sequencer, frozen models.BuildConfiguration) {
	<-seq.Done()

	// Only entries belonging to this run are persisted; a restarted
	// session may already have cleared the shared stream.
	var snapshot []models.LogEntry
	for _, e := range s.stream.Snapshot() {
		if e.RunID == seq.RunID() {
			snapshot = append(snapshot, e)
		}
	}

	s.mu.Lock()
	if s.seq == seq {
		s.stream.Release()
	}
	s.mu.Unlock()

	<-seq.ReportReady()
	report, _ := seq.Report()

	status := models.RunStatusCompleted
	if seq.State() == sequencer.StateAborted {
		status = models.RunStatusAborted
	}
	started, finished := seq.Times()

	run := &models.BuildRun{
		ID:          seq.RunID(),
		SessionID:   s.ID,
		AppName:     frozen.AppName,
		PackageName: frozen.PackageName,
		Wrapper:     frozen.Wrapper,
		Status:      status,
		Report:      report,
		OutputPath:  seq.OutputPath(),
		StartedAt:   started,
		FinishedAt:  finished,
	}

	if frozen.SigningEnabled && frozen.KeystorePassphrase != "" {
		if sec := s.mgr.deps.Secrets; sec != nil && sec.CanEncrypt() {
			enc, err := sec.EncryptPassphrase(frozen.KeystorePassphrase)
			if err != nil {
				s.logger.Warn("failed to encrypt keystore passphrase", "error", err)
			} else {
				run.EncryptedPassphrase = enc
			}
		} else {
			s.logger.Warn("no encryption key configured, keystore passphrase not persisted")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st := s.mgr.deps.Store
	if err := st.Runs().Create(ctx, run); err != nil {
		s.logger.Error("failed to persist run", "error", err, "run_id", run.ID)
		return
	}
	if err := st.Logs().CreateBatch(ctx, run.ID, snapshot); err != nil {
		s.logger.Error("failed to persist run logs", "error", err, "run_id", run.ID)
	}
	s.logger.Info("run persisted", "run_id", run.ID, "status", status, "entries", len(snapshot))
}

// Logs returns the current console snapshot.
func (s *Session) Logs() []models.LogEntry {
	return s.stream.Snapshot()
}

// Report returns the build report text and whether it has resolved.
func (s *Session) Report() (string, bool) {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()
	if seq == nil {
		return "", false
	}
	return seq.Report()
}

// RunDone returns a channel closed when the active run terminates, or nil
// when no run was started. A nil channel blocks forever in a select, which
// is exactly what stream handlers want.
func (s *Session) RunDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == nil {
		return nil
	}
	return s.seq.Done()
}

// Abort cancels the active run, if any.
func (s *Session) Abort() {
	s.mu.Lock()
	seq := s.seq
	s.mu.Unlock()
	if seq != nil {
		seq.Abort()
	}
}

func newSession(mgr *Manager) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		machine:   workflow.NewMachine(),
		stream:    logstream.NewStream(),
		mgr:       mgr,
		logger:    mgr.deps.Logger.With("component", "wizard", "session_id", id),
	}
}

// compile-time check: the adapter satisfies the sequencer's summarizer.
var _ sequencer.Summarizer = (*analysis.Adapter)(nil)
