package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/nyaruka/phonenumbers"
)

const (
	// MinYear is the earliest income/document year accepted
	MinYear = 1950

	phoneRegion = "US"
)

// Field names used in validation errors and BorrowerValidation.Fields
const (
	FieldSSN   = "ssn"
	FieldPhone = "phone"
	FieldEmail = "email"
	FieldZip   = "zip_code"
	FieldYear  = "year"
)

var (
	ssnPattern        = regexp.MustCompile(`^(\d{3}-\d{2}-\d{4}|\d{9})$`)
	ssnDigitsOnly     = regexp.MustCompile(`^\d{9}$`)
	zipPattern        = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// FieldValidator validates and normalizes borrower fields. It is stateless apart
// from the clock used for the year upper bound.
type FieldValidator struct {
	now func() time.Time
}

// NewFieldValidator creates a validator using the wall clock
func NewFieldValidator() *FieldValidator {
	return &FieldValidator{now: time.Now}
}

func valid() model.ValidationResult {
	return model.ValidationResult{IsValid: true}
}

func invalid(field, value string, kind model.ValidationErrorType, msg string) model.ValidationResult {
	return model.ValidationResult{
		IsValid: false,
		Errors: []model.ValidationError{{
			Field:     field,
			Value:     value,
			ErrorType: kind,
			Message:   msg,
		}},
	}
}

// ValidateSSN accepts NNN-NN-NNNN or NNNNNNNNN. An empty value is absent, not invalid.
func (v *FieldValidator) ValidateSSN(ssn string) model.ValidationResult {
	if ssn == "" {
		return valid()
	}
	if !ssnPattern.MatchString(ssn) {
		return invalid(FieldSSN, ssn, model.ErrorTypeFormat, "SSN must be NNN-NN-NNNN or 9 digits")
	}
	result := valid()
	if !strings.Contains(ssn, "-") {
		result.Warnings = append(result.Warnings, "SSN has no dashes; normalize to NNN-NN-NNNN")
	}
	return result
}

// NormalizeSSN renders exactly nine digits as NNN-NN-NNNN. Anything else is
// returned unchanged so that validation can reject it separately.
func NormalizeSSN(ssn string) string {
	if !ssnDigitsOnly.MatchString(ssn) {
		return ssn
	}
	return ssn[:3] + "-" + ssn[3:5] + "-" + ssn[5:]
}

// ValidatePhone parses the value as a US number
func (v *FieldValidator) ValidatePhone(phone string) model.ValidationResult {
	if phone == "" {
		return valid()
	}
	num, err := phonenumbers.Parse(phone, phoneRegion)
	if err != nil {
		return invalid(FieldPhone, phone, model.ErrorTypeFormat, fmt.Sprintf("unparsable phone number: %v", err))
	}
	if !phonenumbers.IsValidNumberForRegion(num, phoneRegion) {
		return invalid(FieldPhone, phone, model.ErrorTypeInvalid, "not a valid US phone number")
	}
	return valid()
}

// NormalizePhone renders a valid US number as (NNN) NNN-NNNN; other input is returned unchanged
func NormalizePhone(phone string) string {
	if phone == "" {
		return phone
	}
	num, err := phonenumbers.Parse(phone, phoneRegion)
	if err != nil || !phonenumbers.IsValidNumberForRegion(num, phoneRegion) {
		return phone
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

// ValidateZip accepts NNNNN or NNNNN-NNNN
func (v *FieldValidator) ValidateZip(zip string) model.ValidationResult {
	if zip == "" {
		return valid()
	}
	if !zipPattern.MatchString(zip) {
		return invalid(FieldZip, zip, model.ErrorTypeFormat, "ZIP code must be NNNNN or NNNNN-NNNN")
	}
	return valid()
}

// ValidateYear checks MinYear <= year <= current year + 1. Zero is absent.
func (v *FieldValidator) ValidateYear(year int) model.ValidationResult {
	if year == 0 {
		return valid()
	}
	value := fmt.Sprintf("%d", year)
	if year < MinYear {
		return invalid(FieldYear, value, model.ErrorTypeRange, fmt.Sprintf("year must be >= %d", MinYear))
	}
	maxYear := v.now().Year() + 1
	if year > maxYear {
		return invalid(FieldYear, value, model.ErrorTypeRange, fmt.Sprintf("year %d is too far in the future (max %d)", year, maxYear))
	}
	return valid()
}

// ValidateEmail checks the address grammar
func (v *FieldValidator) ValidateEmail(email string) model.ValidationResult {
	if email == "" {
		return valid()
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid(FieldEmail, email, model.ErrorTypeFormat, "malformed email address")
	}
	return valid()
}

// ValidateBorrower validates every format-checked field of a record. Passed is
// true only when every field is valid; warnings do not fail a record.
func (v *FieldValidator) ValidateBorrower(record model.BorrowerRecord) model.BorrowerValidation {
	fields := map[string]model.ValidationResult{
		FieldSSN:   v.ValidateSSN(record.SSN),
		FieldPhone: v.ValidatePhone(record.Phone),
		FieldEmail: v.ValidateEmail(record.Email),
	}
	if record.Address != nil {
		fields[FieldZip] = v.ValidateZip(record.Address.ZipCode)
	}

	years := valid()
	for _, income := range record.IncomeHistory {
		r := v.ValidateYear(income.Year)
		if !r.IsValid {
			years.IsValid = false
			years.Errors = append(years.Errors, r.Errors...)
		}
	}
	fields[FieldYear] = years

	passed := true
	for _, r := range fields {
		if !r.IsValid {
			passed = false
			break
		}
	}

	return model.BorrowerValidation{Fields: fields, Passed: passed}
}

// NormalizeBorrower returns a copy of the candidate with trimmed strings and
// canonical SSN and phone renderings. Invalid values are kept as-is.
func NormalizeBorrower(c model.ExtractedBorrower) model.ExtractedBorrower {
	out := c
	out.Name = whitespacePattern.ReplaceAllString(strings.TrimSpace(c.Name), " ")
	out.SSN = NormalizeSSN(strings.TrimSpace(c.SSN))
	out.Phone = NormalizePhone(strings.TrimSpace(c.Phone))
	out.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Address != nil {
		addr := model.Address{
			Street:  strings.TrimSpace(c.Address.Street),
			City:    strings.TrimSpace(c.Address.City),
			State:   strings.ToUpper(strings.TrimSpace(c.Address.State)),
			ZipCode: strings.TrimSpace(c.Address.ZipCode),
		}
		out.Address = &addr
		if addr.IsEmpty() {
			out.Address = nil
		}
	}
	out.AccountNumbers = cleanIdentifiers(c.AccountNumbers)
	out.LoanNumbers = cleanIdentifiers(c.LoanNumbers)
	out.IncomeHistory = append([]model.IncomeRecord(nil), c.IncomeHistory...)
	return out
}

// cleanIdentifiers trims, drops empties and removes duplicates preserving order
func cleanIdentifiers(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
