package copilot

import (
	"context"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// State names a node in the workflow state machine. Transitions are
// strictly sequential within a branch; DONE and FAILED are terminal.
type State string

const (
	StateStart                State = "START"
	StateExtracted            State = "EXTRACTED"
	StateRouted               State = "ROUTED"
	StateConservativeSummary  State = "CONSERVATIVE_SUMMARY"
	StateConservativeSteps    State = "CONSERVATIVE_STEPS"
	StateCompleteSummary      State = "COMPLETE_SUMMARY"
	StateRetrieved            State = "RETRIEVED"
	StateCompleteMitigation   State = "COMPLETE_MITIGATION"
	StateDone                 State = "DONE"
	StateFailed               State = "FAILED"
)

// workflowState is the mutable accumulator threaded through one run.
// Owned exclusively by that run; never shared across invocations.
type workflowState struct {
	report      domain.IncidentReport
	fields      domain.ExtractedFields
	description string
	path        domain.Path
	matches     []domain.RetrievalMatch
	summary     string
	plan        string
	state       State
}

// step is one executable node of the workflow. Each step moves the run
// into its named state on success.
type step struct {
	state State
	run   func(context.Context, *workflowState) error
}
