package copilot

import "github.com/VSOCLabs/copilot-mvp/engine/domain"

// Route selects the execution path from the extracted fields. Pure, total,
// and side-effect free: COMPLETE iff the critical information (WHEN and
// IMPACT) was extracted, CONSERVATIVE otherwise.
func Route(fields domain.ExtractedFields) domain.Path {
	if fields.CriticalInfoMissing {
		return domain.PathConservative
	}
	return domain.PathComplete
}
