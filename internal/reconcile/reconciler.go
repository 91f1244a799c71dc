// Package reconcile deduplicates and merges borrower records extracted from
// different chunks, passes, or documents.
package reconcile

import (
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// MatchReason names the duplicate test that matched
type MatchReason string

const (
	MatchNone          MatchReason = ""
	MatchSSN           MatchReason = "ssn"
	MatchAccountNumber MatchReason = "account_number"
	MatchNameAndZip    MatchReason = "name_and_zip"
	MatchName          MatchReason = "name"
	MatchNameAndSSN4   MatchReason = "name_and_ssn_last4"
)

// Reconciler merges duplicate borrower records. It holds only its thresholds.
type Reconciler struct {
	thresholds model.DedupConfig
}

// NewReconciler creates a reconciler with the given similarity thresholds
func NewReconciler(thresholds model.DedupConfig) *Reconciler {
	return &Reconciler{thresholds: thresholds}
}

// Reconcile scans candidates in order and merges each into the first earlier
// record it duplicates. Matching is sequential, not transitive clustering:
// A~B and B~C with A≁C merge only as far as input order allows.
func (r *Reconciler) Reconcile(candidates []model.BorrowerRecord) []model.BorrowerRecord {
	out := make([]model.BorrowerRecord, 0, len(candidates))

	for _, candidate := range candidates {
		merged := false
		for i := range out {
			if r.Match(out[i], candidate) != MatchNone {
				out[i] = Merge(out[i], candidate)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, candidate.Clone())
		}
	}

	return out
}

// Match runs the duplicate tests in priority order and returns the first that
// holds. Cheap, high-precision identifier checks run before name similarity.
func (r *Reconciler) Match(a, b model.BorrowerRecord) MatchReason {
	if a.SSN != "" && b.SSN != "" && a.SSN == b.SSN {
		return MatchSSN
	}

	if intersects(a.AccountNumbers, b.AccountNumbers) {
		return MatchAccountNumber
	}

	similarity := TokenSortRatio(a.Name, b.Name)

	if similarity >= r.thresholds.NameWithZip {
		za, zb := zipOf(a), zipOf(b)
		if za != "" && za == zb {
			return MatchNameAndZip
		}
	}

	if similarity >= r.thresholds.NameOnly {
		return MatchName
	}

	if similarity >= r.thresholds.NameWithSSN {
		la, lb := ssnLast4(a.SSN), ssnLast4(b.SSN)
		if la != "" && la == lb {
			return MatchNameAndSSN4
		}
	}

	return MatchNone
}

func zipOf(rec model.BorrowerRecord) string {
	if rec.Address == nil {
		return ""
	}
	return zip5(rec.Address.ZipCode)
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
