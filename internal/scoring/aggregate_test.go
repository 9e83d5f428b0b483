package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausecheck/internal/models"
)

func v(cat models.VerdictCategory) models.Verdict {
	return models.Verdict{Category: cat}
}

func TestBuildReportRatioExcludesNotApplicable(t *testing.T) {
	report := BuildReport("contract-1", []models.Verdict{
		v(models.VerdictCompliant),
		v(models.VerdictCompliant),
		v(models.VerdictNonCompliant),
		v(models.VerdictAmbiguous),
		v(models.VerdictNotApplicable),
	})
	assert.Equal(t, "contract-1", report.ContractID)
	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, 2, report.CategoryCounts[models.VerdictCompliant])
	assert.Equal(t, 1, report.CategoryCounts[models.VerdictNotApplicable])
	assert.InDelta(t, 0.5, report.ComplianceRatio, 1e-9)
}

func TestBuildReportAllNotApplicable(t *testing.T) {
	report := BuildReport("contract-1", []models.Verdict{
		v(models.VerdictNotApplicable),
		v(models.VerdictNotApplicable),
	})
	assert.Equal(t, 0.0, report.ComplianceRatio)
}

func TestBuildReportEmpty(t *testing.T) {
	report := BuildReport("contract-1", nil)
	require.NotNil(t, report.CategoryCounts)
	assert.Empty(t, report.Verdicts)
	assert.Equal(t, 0.0, report.ComplianceRatio)
}
