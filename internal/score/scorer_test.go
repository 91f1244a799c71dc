package score

import (
	"testing"

	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/shopspring/decimal"
)

func nameOnly() model.BorrowerRecord {
	return model.BorrowerRecord{
		ID:      "b1",
		Name:    "Jane Doe",
		Sources: []model.SourceReference{{DocumentID: "d1", DocumentName: "d1.pdf", PageNumber: 1, Snippet: "Jane Doe"}},
	}
}

func fullRecord() model.BorrowerRecord {
	r := nameOnly()
	r.Address = &model.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62704"}
	r.IncomeHistory = []model.IncomeRecord{{Amount: decimal.NewFromInt(85000), Period: "annual", Year: 2024, SourceType: "employment"}}
	r.AccountNumbers = []string{"ACC-1"}
	r.LoanNumbers = []string{"LN-1"}
	return r
}

func TestScorer_NameOnly(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	result := scorer.Score(nameOnly(), false, 1)

	if result.Total != 0.60 {
		t.Errorf("Expected total 0.60, got %v", result.Total)
	}
	if !result.RequiresReview {
		t.Error("Expected name-only record to require review")
	}
	if result.RequiredFieldsBonus != 0.1 {
		t.Errorf("Expected required bonus 0.1, got %v", result.RequiredFieldsBonus)
	}
}

func TestScorer_NameOnlyValidated(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	result := scorer.Score(nameOnly(), true, 1)

	if result.Total != 0.75 {
		t.Errorf("Expected total 0.75, got %v", result.Total)
	}
	if result.RequiresReview {
		t.Error("Expected validated record not to require review")
	}
}

func TestScorer_FullRecordCapped(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	result := scorer.Score(fullRecord(), true, 2)

	sum := result.BaseScore + result.RequiredFieldsBonus + result.OptionalFieldsBonus + result.MultiSourceBonus + result.ValidationBonus
	if sum < 1.0999 || sum > 1.1001 {
		t.Errorf("Expected raw component sum 1.10, got %v", sum)
	}
	if result.Total != 1.0 {
		t.Errorf("Expected capped total 1.00, got %v", result.Total)
	}
	if result.RequiresReview {
		t.Error("Expected full record not to require review")
	}
}

func TestScorer_SingleCharNameEarnsNothing(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	r := nameOnly()
	r.Name = "J"
	result := scorer.Score(r, false, 1)

	if result.RequiredFieldsBonus != 0 {
		t.Errorf("Expected no required bonus for a single-character name, got %v", result.RequiredFieldsBonus)
	}
	if result.Total != 0.5 {
		t.Errorf("Expected total 0.5, got %v", result.Total)
	}
}

func TestScorer_EmptyAddressEarnsNothing(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	r := nameOnly()
	r.Address = &model.Address{}
	result := scorer.Score(r, false, 1)

	if result.RequiredFieldsBonus != 0.1 {
		t.Errorf("Expected empty address to earn nothing, got required bonus %v", result.RequiredFieldsBonus)
	}
}

func TestScorer_OptionalCap(t *testing.T) {
	cfg := model.DefaultConfidenceConfig()
	cfg.OptionalCap = 0.1
	scorer := NewScorer(cfg)

	result := scorer.Score(fullRecord(), false, 1)

	if result.OptionalFieldsBonus != 0.1 {
		t.Errorf("Expected optional bonus capped at 0.1, got %v", result.OptionalFieldsBonus)
	}
}

func TestScorer_ThresholdBoundary(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	// 0.5 + 0.2 = 0.70 exactly, which is not below the threshold
	r := nameOnly()
	r.Address = &model.Address{ZipCode: "62704"}
	result := scorer.Score(r, false, 1)

	if result.Total != 0.7 {
		t.Errorf("Expected total 0.7, got %v", result.Total)
	}
	if result.RequiresReview {
		t.Error("Expected total at threshold not to require review")
	}
}

func TestScorer_Apply(t *testing.T) {
	scorer := NewScorer(model.DefaultConfidenceConfig())

	r := nameOnly()
	r.Sources = append(r.Sources, model.SourceReference{DocumentID: "d2", DocumentName: "d2.pdf", PageNumber: 3})

	scored, breakdown := scorer.Apply(r, true)

	if breakdown.MultiSourceBonus != 0.1 {
		t.Errorf("Expected multi-source bonus from two sources, got %v", breakdown.MultiSourceBonus)
	}
	if scored.ConfidenceScore != breakdown.Total {
		t.Errorf("Expected confidence %v, got %v", breakdown.Total, scored.ConfidenceScore)
	}
	if r.ConfidenceScore != 0 {
		t.Error("Apply must not modify its input")
	}
}
