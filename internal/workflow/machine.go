// Package workflow gates the wizard's three-stage flow.
package workflow

import "sync"

// Step identifies the active wizard stage.
type Step int

const (
	// StepSource is the source-selection stage.
	StepSource Step = iota + 1
	// StepConfiguration is the build-settings stage.
	StepConfiguration
	// StepBuildOutput is the build console and report stage.
	StepBuildOutput
)

// String returns the wire name of the step.
func (s Step) String() string {
	switch s {
	case StepSource:
		return "source"
	case StepConfiguration:
		return "configuration"
	case StepBuildOutput:
		return "build_output"
	default:
		return "unknown"
	}
}

// Action is a user-driven workflow transition request.
type Action string

const (
	// ActionAnalyzed fires after a successful (or fallback-resolved) analysis.
	ActionAnalyzed Action = "analyzed"
	// ActionBack returns from configuration to source selection.
	ActionBack Action = "back"
	// ActionStartBuild moves to the build console and starts a run.
	ActionStartBuild Action = "start_build"
	// ActionConfigure returns from the build console to configuration.
	ActionConfigure Action = "configure"
)

// transitions is the complete table of valid (step, action) pairs.
var transitions = map[Step]map[Action]Step{
	StepSource: {
		ActionAnalyzed: StepConfiguration,
	},
	StepConfiguration: {
		ActionBack:       StepSource,
		ActionStartBuild: StepBuildOutput,
	},
	StepBuildOutput: {
		ActionConfigure: StepConfiguration,
	},
}

// Machine owns the current wizard step. Transitions outside the table are
// silently ignored, not errors.
type Machine struct {
	mu      sync.Mutex
	current Step
}

// NewMachine returns a machine positioned at source selection.
func NewMachine() *Machine {
	return &Machine{current: StepSource}
}

// Current returns the active step.
func (m *Machine) Current() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Apply attempts a transition and reports whether the step changed.
// Invalid (step, action) pairs leave the step unchanged.
func (m *Machine) Apply(a Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := transitions[m.current][a]
	if !ok {
		return false
	}
	m.current = next
	return true
}

// AllowedActions returns the actions valid from the given step.
func AllowedActions(s Step) []Action {
	switch s {
	case StepSource:
		return []Action{ActionAnalyzed}
	case StepConfiguration:
		return []Action{ActionBack, ActionStartBuild}
	case StepBuildOutput:
		return []Action{ActionConfigure}
	default:
		return []Action{}
	}
}
