package copilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/pkg/fn"
)

func (e *Engine) completeSummary(ctx context.Context, st *workflowState) error {
	prompt := fmt.Sprintf(`Create an executive summary of this incident.

Extracted fields:
%s

Incident report:
%s`,
		knownFields(st.fields),
		st.report.Text,
	)

	summary, err := e.generate(ctx, extGenCall{
		system:      completeSummaryPrompt,
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

func (e *Engine) retrieve(ctx context.Context, st *workflowState) error {
	// A failed or empty retrieval yields zero matches and the mitigation
	// step proceeds zero-shot.
	st.matches = e.retriever.Retrieve(ctx, st.description)
	return nil
}

func (e *Engine) completeMitigation(ctx context.Context, st *workflowState) error {
	prompt := fmt.Sprintf(`Generate a mitigation plan for this incident.

CURRENT INCIDENT SUMMARY:
%s

FEW-SHOT EXAMPLES FROM SIMILAR HISTORICAL INCIDENTS:
%s

Based on the current incident summary and the examples above, provide a comprehensive mitigation plan.`,
		st.summary,
		fewShotExamples(st.matches),
	)

	plan, err := e.generate(ctx, extGenCall{
		system:      mitigationPrompt,
		prompt:      prompt,
		temperature: 0.7,
		maxTokens:   e.opts.PlanMaxTokens,
	})
	if err != nil {
		return err
	}
	st.plan = plan
	return nil
}

// fewShotExamples renders the retrieved (description, recommendations)
// pairs as grounding examples for the mitigation step.
func fewShotExamples(matches []domain.RetrievalMatch) string {
	if len(matches) == 0 {
		return "No similar historical incidents available."
	}

	var b strings.Builder
	for i, m := range matches {
		threat := m.ThreatCategory
		if threat == "" {
			threat = "Unknown"
		}
		fmt.Fprintf(&b, "### Example %d: %s (%s)\n", i+1, m.IncidentID, threat)
		fmt.Fprintf(&b, "**Incident Description:**\n%s\n\n", m.Description)
		fmt.Fprintf(&b, "**Mitigation Strategy:**\n%s\n\n", m.Recommendations)
	}
	return strings.TrimSpace(b.String())
}

// sourceIncidentIDs lists the incident ids backing the mitigation plan,
// in match order.
func sourceIncidentIDs(matches []domain.RetrievalMatch) []string {
	return fn.Unique(fn.Map(matches, func(m domain.RetrievalMatch) string {
		return m.IncidentID
	}))
}
