package tracking

import (
	"fmt"
	"strings"
)

// QualificationResult reports whether a patient is ready for extraction and why.
type QualificationResult struct {
	Qualified bool
	Reason    string
}

// Qualify decides whether a waiting-room row has a chart yet. The policy is
// fail-open: only the explicit no-chart statuses disqualify, every other
// non-empty status counts as having a chart.
func Qualify(obs Observation) QualificationResult {
	status := strings.ToUpper(strings.TrimSpace(obs.Status))

	switch {
	case status == "":
		return QualificationResult{false, "No status - waiting"}
	case strings.Contains(status, "LOGGING"):
		return QualificationResult{false, "Logging - no chart yet"}
	case strings.Contains(status, "LOGPENDING"):
		return QualificationResult{false, "LogPending - no chart yet"}
	case strings.Contains(status, "WAITING") && !strings.Contains(status, "CHARTING"):
		return QualificationResult{false, "Waiting - no chart yet"}
	case strings.Contains(status, "LOGGED") || strings.Contains(status, "CHARTING"):
		return QualificationResult{true, "Has chart - eligible"}
	default:
		return QualificationResult{true, fmt.Sprintf("Status: %s - eligible", obs.Status)}
	}
}
