package score

import (
	"math"
	"unicode/utf8"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Scorer calculates the additive confidence of a borrower record
type Scorer struct {
	cfg model.ConfidenceConfig
}

// NewScorer creates a new scorer with the given model constants
func NewScorer(cfg model.ConfidenceConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score calculates the confidence breakdown for a record. validationPassed and
// sourceCount are supplied by the caller so the result is reproducible from
// its inputs alone.
func (s *Scorer) Score(record model.BorrowerRecord, validationPassed bool, sourceCount int) model.ConfidenceBreakdown {
	// 1. Required fields (0 to RequiredCap)
	required := 0.0
	if utf8.RuneCountInString(record.Name) > 1 {
		required += s.cfg.NameBonus
	}
	if !record.Address.IsEmpty() {
		required += s.cfg.AddressBonus
	}
	required = math.Min(required, s.cfg.RequiredCap)

	// 2. Optional fields (0 to OptionalCap)
	optional := 0.0
	if len(record.IncomeHistory) > 0 {
		optional += s.cfg.OptionalBonus
	}
	if len(record.AccountNumbers) > 0 {
		optional += s.cfg.OptionalBonus
	}
	if len(record.LoanNumbers) > 0 {
		optional += s.cfg.OptionalBonus
	}
	optional = math.Min(optional, s.cfg.OptionalCap)

	// 3. Corroboration across sources
	multiSource := 0.0
	if sourceCount > 1 {
		multiSource = s.cfg.MultiSourceBonus
	}

	// 4. Format validation
	validation := 0.0
	if validationPassed {
		validation = s.cfg.ValidationBonus
	}

	total := round4(math.Min(s.cfg.Base+required+optional+multiSource+validation, s.cfg.Max))

	return model.ConfidenceBreakdown{
		BaseScore:           s.cfg.Base,
		RequiredFieldsBonus: round4(required),
		OptionalFieldsBonus: round4(optional),
		MultiSourceBonus:    multiSource,
		ValidationBonus:     validation,
		Total:               total,
		RequiresReview:      total < s.cfg.ReviewThreshold,
	}
}

// Apply scores a record using its own source list and returns a copy carrying
// the resulting confidence.
func (s *Scorer) Apply(record model.BorrowerRecord, validationPassed bool) (model.BorrowerRecord, model.ConfidenceBreakdown) {
	breakdown := s.Score(record, validationPassed, len(record.Sources))
	out := record.Clone()
	out.ConfidenceScore = breakdown.Total
	return out, breakdown
}

// round4 removes float accumulation noise so threshold comparisons are exact
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
