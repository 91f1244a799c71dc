// Package complexity classifies documents as standard or complex so the
// extraction layer can pick a model.
package complexity

import (
	"fmt"
	"regexp"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

const (
	// LargeDocumentPages is the page count above which a document is complex
	LargeDocumentPages = 10

	// PoorQualityThreshold is the number of scan-quality indicators tolerated
	PoorQualityThreshold = 3
)

// Each matching pattern counts as one additional borrower
var multiBorrowerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bco-?borrower\b`),
	regexp.MustCompile(`(?i)\bjoint\s+(?:application|applicants?|borrowers?|account)\b`),
	regexp.MustCompile(`(?i)\bspouse\b`),
	regexp.MustCompile(`(?i)\bsecond\s+borrower\b`),
	regexp.MustCompile(`(?i)\bborrower\s*(?:#\s*)?2\b`),
}

// Counted by occurrence
var poorQualityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[(?:illegible|unreadable|unclear)\]`),
	// Unicode letters and digits are word characters; accented OCR text is not noise
	regexp.MustCompile(`[^\pL\pN_\s\p{Z}]{5,}`),
}

// Counted by occurrence
var handwrittenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[(?:handwritten|handwriting|signature)\]`),
	regexp.MustCompile(`(?i)\bsignature:`),
	regexp.MustCompile(`(?i)\bsigned:`),
}

// Assessor scans document text for complexity signals
type Assessor struct{}

// NewAssessor creates a new assessor
func NewAssessor() *Assessor {
	return &Assessor{}
}

// Classify runs every pattern family over the text and derives the level
func (a *Assessor) Classify(text string, pageCount int) model.ComplexityAssessment {
	borrowers := 1
	for _, p := range multiBorrowerPatterns {
		if p.MatchString(text) {
			borrowers++
		}
	}

	poorQuality := countMatches(poorQualityPatterns, text)
	handwritten := countMatches(handwrittenPatterns, text)

	assessment := model.ComplexityAssessment{
		PageCount:              pageCount,
		EstimatedBorrowerCount: borrowers,
		HasPoorQuality:         poorQuality > PoorQualityThreshold,
		HasHandwritten:         handwritten > 0,
	}

	var reasons []string
	if borrowers > 1 {
		reasons = append(reasons, fmt.Sprintf("Multiple borrowers detected (estimated %d)", borrowers))
	}
	if pageCount > LargeDocumentPages {
		reasons = append(reasons, fmt.Sprintf("Large document (%d pages)", pageCount))
	}
	if assessment.HasPoorQuality {
		reasons = append(reasons, fmt.Sprintf("Poor scan quality (%d indicators)", poorQuality))
	}
	if assessment.HasHandwritten {
		reasons = append(reasons, fmt.Sprintf("Handwritten content detected (%d indicators)", handwritten))
	}

	if len(reasons) == 0 {
		assessment.Level = model.ComplexityStandard
		assessment.Reasons = []string{"Standard single-borrower document"}
		return assessment
	}

	assessment.Level = model.ComplexityComplex
	assessment.Reasons = reasons
	return assessment
}

// ModelFor picks the configured model for an assessment
func ModelFor(assessment model.ComplexityAssessment, cfg model.ExtractionConfig) string {
	if assessment.Level == model.ComplexityComplex && cfg.ComplexModel != "" {
		return cfg.ComplexModel
	}
	return cfg.StandardModel
}

func countMatches(patterns []*regexp.Regexp, text string) int {
	n := 0
	for _, p := range patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}
