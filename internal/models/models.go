package models

import "time"

type SourceType string

const (
	SourceRegulation SourceType = "regulation"
	SourceContract   SourceType = "contract"
)

type Document struct {
	DocID      string     `json:"doc_id"`
	SourceType SourceType `json:"source_type"`
	Filename   string     `json:"filename"`
	Status     string     `json:"status"`
	FailReason string     `json:"fail_reason,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Segment is a contiguous span of a document's normalized text.
// Start and End are rune offsets; consecutive segments of one document
// overlap by the configured overlap window.
type Segment struct {
	SegmentID string `json:"segment_id"`
	DocID     string `json:"doc_id"`
	Index     int    `json:"index"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`
}

type VerdictCategory string

const (
	VerdictCompliant     VerdictCategory = "compliant"
	VerdictNonCompliant  VerdictCategory = "non_compliant"
	VerdictAmbiguous     VerdictCategory = "ambiguous"
	VerdictNotApplicable VerdictCategory = "not_applicable"
)

// DefaultVerdictCategories is the closed verdict set. Scorers take a
// configured set so domain-specific category schemes can be swapped in.
func DefaultVerdictCategories() []VerdictCategory {
	return []VerdictCategory{VerdictCompliant, VerdictNonCompliant, VerdictAmbiguous, VerdictNotApplicable}
}

// Citation points from a verdict back to one retrieved regulation segment.
// Ref is the 1-based index the segment carried in the scoring prompt.
type Citation struct {
	Ref       int     `json:"ref"`
	SegmentID string  `json:"segment_id"`
	DocID     string  `json:"doc_id"`
	Filename  string  `json:"filename,omitempty"`
	Snippet   string  `json:"snippet,omitempty"`
	Score     float64 `json:"score"`
}

type Verdict struct {
	ClauseIndex int             `json:"clause_index"`
	ClauseText  string          `json:"clause_text"`
	Category    VerdictCategory `json:"category"`
	Confidence  float64         `json:"confidence"`
	Citations   []Citation      `json:"citations"`
	Rationale   string          `json:"rationale,omitempty"`
}

type Report struct {
	ReportID        string                  `json:"report_id"`
	ContractID      string                  `json:"contract_id"`
	Verdicts        []Verdict               `json:"verdicts"`
	CategoryCounts  map[VerdictCategory]int `json:"category_counts"`
	ComplianceRatio float64                 `json:"compliance_ratio"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
