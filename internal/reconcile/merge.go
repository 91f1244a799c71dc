package reconcile

import (
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Merge combines two records describing the same borrower into a new value.
// The higher-confidence record is the base (a wins ties); the base keeps its
// identity, name and timestamp while the other fills gaps and extends lists.
func Merge(a, b model.BorrowerRecord) model.BorrowerRecord {
	base, other := a, b
	if b.ConfidenceScore > a.ConfidenceScore {
		base, other = b, a
	}

	out := base.Clone()

	if out.SSN == "" {
		out.SSN = other.SSN
	}
	if out.Phone == "" {
		out.Phone = other.Phone
	}
	if out.Email == "" {
		out.Email = other.Email
	}
	if out.Address.IsEmpty() && !other.Address.IsEmpty() {
		addr := *other.Address
		out.Address = &addr
	}

	for _, income := range other.IncomeHistory {
		if !containsIncome(out.IncomeHistory, income) {
			out.IncomeHistory = append(out.IncomeHistory, income)
		}
	}

	out.AccountNumbers = union(out.AccountNumbers, other.AccountNumbers)
	out.LoanNumbers = union(out.LoanNumbers, other.LoanNumbers)

	for _, src := range other.Sources {
		if !containsSource(out.Sources, src) {
			out.Sources = append(out.Sources, src)
		}
	}

	if other.ConfidenceScore > out.ConfidenceScore {
		out.ConfidenceScore = other.ConfidenceScore
	}

	return out
}

func containsIncome(list []model.IncomeRecord, r model.IncomeRecord) bool {
	for _, existing := range list {
		if existing.SameEntry(r) {
			return true
		}
	}
	return false
}

func containsSource(list []model.SourceReference, s model.SourceReference) bool {
	for _, existing := range list {
		if existing.Equal(s) {
			return true
		}
	}
	return false
}

// union appends values of b missing from a, preserving first-seen order
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
