package copilot

import (
	"fmt"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// render assembles the final markdown response: summary, plan, and (on the
// complete path) the analysis context listing the historical incidents the
// plan is grounded on.
func render(resp *domain.StructuredResponse, matches []domain.RetrievalMatch) string {
	var b strings.Builder

	b.WriteString("## Incident Summary\n\n")
	b.WriteString(resp.Summary)
	b.WriteString("\n\n---\n\n")

	if resp.Path == domain.PathConservative {
		b.WriteString("## Recommended Next Steps\n\n")
	} else {
		b.WriteString("## Mitigation Plan\n\n")
	}
	b.WriteString(resp.Plan)

	if len(matches) > 0 {
		b.WriteString("\n\n---\n\n**Analysis Context**\n")
		fmt.Fprintf(&b, "Mitigation plan based on %d similar historical incident(s):\n", len(matches))
		for _, m := range matches {
			threat := m.ThreatCategory
			if threat == "" {
				threat = "N/A"
			}
			fmt.Fprintf(&b, "- **%s**: %s (Similarity: %.2f)\n", m.IncidentID, threat, m.Score)
		}
	}

	return b.String()
}
