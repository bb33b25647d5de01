package copilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// The conservative path never touches the retrieval subsystem: it restates
// only what the report states and recommends precautionary steps.

func (e *Engine) conservativeSummary(ctx context.Context, st *workflowState) error {
	missing := st.fields.MissingCritical()
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}

	prompt := fmt.Sprintf(`Provide a conservative summary of this incident report. Critical information is missing: %s.

Known fields:
%s

Incident report:
%s`,
		strings.Join(names, ", "),
		knownFields(st.fields),
		st.report.Text,
	)

	summary, err := e.generate(ctx, extGenCall{
		system:      conservativeSummaryPrompt,
		prompt:      prompt,
		temperature: 0.3,
		maxTokens:   e.opts.SummaryMaxTokens,
	})
	if err != nil {
		return err
	}
	st.summary = summary
	return nil
}

func (e *Engine) conservativeSteps(ctx context.Context, st *workflowState) error {
	prompt := fmt.Sprintf(`Provide conservative next steps for this incident.

Current summary:
%s

Known fields:
%s

Critical information still missing: %s`,
		st.summary,
		knownFields(st.fields),
		missingNames(st.fields),
	)

	plan, err := e.generate(ctx, extGenCall{
		system:      conservativeStepsPrompt,
		prompt:      prompt,
		temperature: 0.3,
		maxTokens:   e.opts.PlanMaxTokens,
	})
	if err != nil {
		return err
	}
	st.plan = plan
	return nil
}

// knownFields renders only the fields that are actually present, so the
// prompts never feed absent markers back in as facts.
func knownFields(fields domain.ExtractedFields) string {
	var b strings.Builder
	for _, f := range domain.Fields {
		if fields.Present(f) {
			fmt.Fprintf(&b, "%s: %s\n", f, fields.Get(f))
		}
	}
	if b.Len() == 0 {
		return "(none extracted)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func missingNames(fields domain.ExtractedFields) string {
	missing := fields.MissingCritical()
	if len(missing) == 0 {
		return "(none)"
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
