package model

// TextSegment is an overlapping window over a document's text.
// Offsets are rune positions in the segmented text.
type TextSegment struct {
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Index       int    `json:"index"`
	TotalCount  int    `json:"total_count"`
}

// ComplexityLevel drives model selection
type ComplexityLevel string

const (
	ComplexityStandard ComplexityLevel = "standard"
	ComplexityComplex  ComplexityLevel = "complex"
)

// ComplexityAssessment is the result of scanning a document for complexity signals
type ComplexityAssessment struct {
	Level                  ComplexityLevel `json:"level"`
	Reasons                []string        `json:"reasons"`
	PageCount              int             `json:"page_count"`
	EstimatedBorrowerCount int             `json:"estimated_borrower_count"`
	HasHandwritten         bool            `json:"has_handwritten"`
	HasPoorQuality         bool            `json:"has_poor_quality"`
}

// ExtractionMethod selects which strategy the router uses
type ExtractionMethod string

const (
	MethodPrimary   ExtractionMethod = "primary"
	MethodSecondary ExtractionMethod = "secondary"
	MethodAuto      ExtractionMethod = "auto"
)

// ParseExtractionMethod maps a user-supplied string to a method; empty means auto
func ParseExtractionMethod(s string) (ExtractionMethod, bool) {
	switch ExtractionMethod(s) {
	case "", MethodAuto:
		return MethodAuto, true
	case MethodPrimary:
		return MethodPrimary, true
	case MethodSecondary:
		return MethodSecondary, true
	default:
		return "", false
	}
}

// ConfidenceBreakdown is the transparent, reproducible confidence calculation for a record
type ConfidenceBreakdown struct {
	BaseScore           float64 `json:"base_score"`
	RequiredFieldsBonus float64 `json:"required_fields_bonus"`
	OptionalFieldsBonus float64 `json:"optional_fields_bonus"`
	MultiSourceBonus    float64 `json:"multi_source_bonus"`
	ValidationBonus     float64 `json:"validation_bonus"`
	Total               float64 `json:"total"`
	RequiresReview      bool    `json:"requires_review"`
}

// ScoredBorrower is a finalized record with its score breakdown and validation outcome
type ScoredBorrower struct {
	Record     BorrowerRecord      `json:"record"`
	Confidence ConfidenceBreakdown `json:"confidence"`
	Validation BorrowerValidation  `json:"validation"`
}

// DocumentResult is everything the engine hands to the persistence layer for one document
type DocumentResult struct {
	Document     DocumentMeta         `json:"document"`
	Assessment   ComplexityAssessment `json:"assessment"`
	Model        string               `json:"model,omitempty"`
	SegmentCount int                  `json:"segment_count"`
	Strategies   []string             `json:"strategies"` // Strategy that produced each segment's candidates
	FellBack     bool                 `json:"fell_back"`
	Candidates   int                  `json:"candidates"`
	Borrowers    []ScoredBorrower     `json:"borrowers"`
}

// ReviewCount returns how many borrowers are flagged for manual review
func (r *DocumentResult) ReviewCount() int {
	n := 0
	for _, b := range r.Borrowers {
		if b.Confidence.RequiresReview {
			n++
		}
	}
	return n
}
