package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentMeta identifies the document a piece of text came from
type DocumentMeta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
}

// Address is a borrower's postal address
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
}

// IsEmpty reports whether no address component is set
func (a *Address) IsEmpty() bool {
	return a == nil || (a.Street == "" && a.City == "" && a.State == "" && a.ZipCode == "")
}

// IncomeRecord is one income entry (one employer or source, one period, one year)
type IncomeRecord struct {
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`      // annual, monthly, biweekly, weekly, hourly
	Year       int             `json:"year"`        // Tax/statement year
	SourceType string          `json:"source_type"` // employment, self_employment, rental, other
	Employer   string          `json:"employer,omitempty"`
}

// SameEntry reports whether two income records describe the same entry.
// Employer is deliberately not part of the identity.
func (r IncomeRecord) SameEntry(other IncomeRecord) bool {
	return r.Amount.Equal(other.Amount) &&
		r.Period == other.Period &&
		r.Year == other.Year &&
		r.SourceType == other.SourceType
}

// ExtractedBorrower is an untrusted candidate produced by an extraction strategy.
// Snippet and offsets are relative to the text handed to the strategy.
type ExtractedBorrower struct {
	Name           string         `json:"name"`
	SSN            string         `json:"ssn,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Address        *Address       `json:"address,omitempty"`
	IncomeHistory  []IncomeRecord `json:"income_history,omitempty"`
	AccountNumbers []string       `json:"account_numbers,omitempty"`
	LoanNumbers    []string       `json:"loan_numbers,omitempty"`

	Snippet    string `json:"snippet,omitempty"`
	CharStart  *int   `json:"char_start,omitempty"`
	CharEnd    *int   `json:"char_end,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

// SourceReference attributes a record to a location in a document
type SourceReference struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number"`
	Section      string `json:"section,omitempty"`
	Snippet      string `json:"snippet"`
	CharStart    *int   `json:"char_start,omitempty"`
	CharEnd      *int   `json:"char_end,omitempty"`
}

// Equal compares two references by value
func (s SourceReference) Equal(other SourceReference) bool {
	return s.DocumentID == other.DocumentID &&
		s.DocumentName == other.DocumentName &&
		s.PageNumber == other.PageNumber &&
		s.Section == other.Section &&
		s.Snippet == other.Snippet &&
		intPtrEqual(s.CharStart, other.CharStart) &&
		intPtrEqual(s.CharEnd, other.CharEnd)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// BorrowerRecord is the canonical, source-attributed unit of deduplication and persistence
type BorrowerRecord struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	SSN             string            `json:"ssn,omitempty"`
	Phone           string            `json:"phone,omitempty"`
	Email           string            `json:"email,omitempty"`
	Address         *Address          `json:"address,omitempty"`
	IncomeHistory   []IncomeRecord    `json:"income_history"`
	AccountNumbers  []string          `json:"account_numbers"`
	LoanNumbers     []string          `json:"loan_numbers"`
	Sources         []SourceReference `json:"sources"`
	ConfidenceScore float64           `json:"confidence_score"`
	ExtractedAt     time.Time         `json:"extracted_at"`
}

// IsComplete reports whether the record carries at least one source reference
func (r BorrowerRecord) IsComplete() bool {
	return len(r.Sources) > 0
}

// Clone returns a deep copy so merges never alias the inputs
func (r BorrowerRecord) Clone() BorrowerRecord {
	out := r
	if r.Address != nil {
		addr := *r.Address
		out.Address = &addr
	}
	out.IncomeHistory = append([]IncomeRecord(nil), r.IncomeHistory...)
	out.AccountNumbers = append([]string(nil), r.AccountNumbers...)
	out.LoanNumbers = append([]string(nil), r.LoanNumbers...)
	out.Sources = append([]SourceReference(nil), r.Sources...)
	return out
}
