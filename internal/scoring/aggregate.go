package scoring

import (
	"time"

	"github.com/google/uuid"

	"clausecheck/internal/models"
)

// BuildReport aggregates clause verdicts into a report. The compliance
// ratio is compliant over applicable clauses; not_applicable verdicts
// never count against a contract. A report over zero applicable clauses
// has ratio 0.
func BuildReport(contractID string, verdicts []models.Verdict) models.Report {
	counts := map[models.VerdictCategory]int{}
	for _, v := range verdicts {
		counts[v.Category]++
	}
	applicable := len(verdicts) - counts[models.VerdictNotApplicable]
	ratio := 0.0
	if applicable > 0 {
		ratio = float64(counts[models.VerdictCompliant]) / float64(applicable)
	}
	return models.Report{
		ReportID:        uuid.NewString(),
		ContractID:      contractID,
		Verdicts:        verdicts,
		CategoryCounts:  counts,
		ComplianceRatio: ratio,
		GeneratedAt:     time.Now().UTC(),
	}
}
