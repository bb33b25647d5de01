// Package copilot implements the incident analysis workflow: a small state
// machine that extracts 5W1H fields from a raw report, routes the run onto
// the conservative or complete path based on critical-information
// completeness, and (on the complete path) grounds the mitigation plan in
// retrieved historical examples.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
)

// Options configures the workflow engine. Fixed for the process lifetime.
type Options struct {
	// GenTimeout bounds every generation call. A timeout here is fatal for
	// the run, unlike retrieval timeouts.
	GenTimeout time.Duration
	// SearchTimeout bounds the retrieval round-trip (embed + query).
	SearchTimeout time.Duration
	// TopK is the number of historical matches requested.
	TopK int

	ExtractMaxTokens int
	SummaryMaxTokens int
	PlanMaxTokens    int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		GenTimeout:       45 * time.Second,
		SearchTimeout:    5 * time.Second,
		TopK:             3,
		ExtractMaxTokens: 500,
		SummaryMaxTokens: 400,
		PlanMaxTokens:    1000,
	}
}

// Engine runs incident reports through the analysis workflow.
type Engine struct {
	gen       llm.Generator
	retriever *Retriever
	opts      Options
	logger    *slog.Logger
}

// New creates a workflow Engine. The retriever may be built over any
// Searcher; pass nil only in tests that never reach the complete path.
func New(gen llm.Generator, retriever *Retriever, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{gen: gen, retriever: retriever, opts: opts, logger: logger}
}

// Run executes the workflow for one report. It returns either a complete
// StructuredResponse or a single *domain.StepError identifying the cause
// and the last state the run reached. It never returns a partial success.
func (e *Engine) Run(ctx context.Context, rep domain.IncidentReport) (*domain.StructuredResponse, error) {
	ctx, span := otel.Tracer("engine/copilot").Start(ctx, "copilot.run")
	defer span.End()

	if err := domain.ValidateReport(rep); err != nil {
		return nil, domain.NewStepError(string(StateStart), "", err)
	}

	st := &workflowState{report: rep, state: StateStart}
	e.logger.Info("run start", "report_id", rep.ID, "report_len", len(rep.Text))

	// Extraction and routing are common to both branches.
	if err := e.extract(ctx, st); err != nil {
		return nil, e.fail(st, err)
	}
	st.state = StateExtracted

	st.path = Route(st.fields)
	st.state = StateRouted
	e.logger.Info("routed", "report_id", rep.ID, "path", st.path,
		"critical_info_missing", st.fields.CriticalInfoMissing)

	for _, s := range e.branch(st.path) {
		if err := s.run(ctx, st); err != nil {
			return nil, e.fail(st, err)
		}
		st.state = s.state
	}
	st.state = StateDone

	resp := &domain.StructuredResponse{
		Path:              st.path,
		Summary:           st.summary,
		Plan:              st.plan,
		SourceIncidentIDs: sourceIncidentIDs(st.matches),
	}
	if resp.SourceIncidentIDs == nil {
		resp.SourceIncidentIDs = []string{}
	}
	resp.Rendered = render(resp, st.matches)

	e.logger.Info("run done", "report_id", rep.ID, "path", st.path,
		"sources", len(resp.SourceIncidentIDs))
	return resp, nil
}

// branch returns the step sequence for the chosen path.
func (e *Engine) branch(path domain.Path) []step {
	if path == domain.PathConservative {
		return []step{
			{StateConservativeSummary, e.conservativeSummary},
			{StateConservativeSteps, e.conservativeSteps},
		}
	}
	return []step{
		{StateCompleteSummary, e.completeSummary},
		{StateRetrieved, e.retrieve},
		{StateCompleteMitigation, e.completeMitigation},
	}
}

// extract runs the field extraction step and derives the retrieval
// description.
func (e *Engine) extract(ctx context.Context, st *workflowState) error {
	out, err := e.generate(ctx, extGenCall{
		system:      extractionPrompt,
		prompt:      "Please extract the standard information from this incident report:\n\n" + st.report.Text,
		temperature: 0.3,
		maxTokens:   e.opts.ExtractMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("extract: %w", classifyExtraction(err))
	}

	fields, err := parseExtraction(out)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	st.fields = fields
	st.description = descriptionFor(st.report, fields)
	return nil
}

// extGenCall bundles one generation call's parameters.
type extGenCall struct {
	system      string
	prompt      string
	temperature float32
	maxTokens   int
}

// generate performs a bounded generation call. Deadline expiry is
// classified as ErrExternalTimeout, anything else as ErrGeneration.
func (e *Engine) generate(ctx context.Context, call extGenCall) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.GenTimeout)
	defer cancel()

	out, err := e.gen.Generate(ctx, llm.GenerateRequest{
		System:      call.system,
		Prompt:      call.prompt,
		Temperature: call.temperature,
		MaxTokens:   call.maxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrExternalTimeout, err)
		}
		if errors.Is(err, domain.ErrGeneration) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	return out, nil
}

// classifyExtraction maps a generation failure in the extraction step onto
// the extraction taxonomy, preserving timeout identity.
func classifyExtraction(err error) error {
	if errors.Is(err, domain.ErrExternalTimeout) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrExtraction, err)
}

// fail transitions the run to FAILED and tags the error with the last
// completed state.
func (e *Engine) fail(st *workflowState, err error) error {
	last := st.state
	st.state = StateFailed
	e.logger.Error("run failed", "report_id", st.report.ID, "state", last, "path", st.path, "error", err)
	return domain.NewStepError(string(last), st.path, err)
}
