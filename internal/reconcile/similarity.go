package reconcile

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// TokenSortRatio compares two names case-insensitively and independent of token
// order, returning a similarity on a 0-100 scale.
func TokenSortRatio(a, b string) float64 {
	sa := sortedTokens(a)
	sb := sortedTokens(b)
	if sa == "" && sb == "" {
		return 0
	}

	m := difflib.NewMatcherWithJunk(chars(sa), chars(sb), false, nil)
	return m.Ratio() * 100
}

// sortedTokens lowercases, strips punctuation and joins tokens in sorted order
func sortedTokens(s string) string {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// zip5 returns the first five characters of a ZIP code, or "" when too short
func zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) < 5 {
		return ""
	}
	return zip[:5]
}

// ssnLast4 returns the last four digits of an SSN, or "" when it has fewer than four
func ssnLast4(ssn string) string {
	var digits []rune
	for _, r := range ssn {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}
