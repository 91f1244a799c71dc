package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// HeuristicStrategy extracts borrowers from labelled fields ("Borrower:",
// "SSN:", "Phone:" ...) without calling any external service. A name label
// opens a borrower block; field lines attach to the most recent block.
type HeuristicStrategy struct {
	namePattern    *regexp.Regexp
	ssnPattern     *regexp.Regexp
	phonePattern   *regexp.Regexp
	emailPattern   *regexp.Regexp
	addressPattern *regexp.Regexp
	accountPattern *regexp.Regexp
	loanPattern    *regexp.Regexp
	employerLabel  *regexp.Regexp
	amountPattern  *regexp.Regexp
	yearPattern    *regexp.Regexp
	cityStateZip   *regexp.Regexp
	zipPattern     *regexp.Regexp
}

// NewHeuristicStrategy creates the offline labelled-field extractor
func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{
		namePattern:    regexp.MustCompile(`(?i)^\s*(?:co-?borrower|co-?applicant|borrower|applicant)(?:\s*#?\s*\d+)?(?:'s)?(?:\s+(?:full\s+)?name)?\s*:\s*(\S.*?)\s*$`),
		ssnPattern:     regexp.MustCompile(`(?i)\b(?:ssn|social\s+security(?:\s+(?:number|no\.?))?)\s*[:#]?\s*(\d{3}-?\d{2}-?\d{4}|\d{9})\b`),
		phonePattern:   regexp.MustCompile(`(?i)\b(?:phone|tel(?:ephone)?|cell|mobile)(?:\s+(?:number|no\.?))?\s*[:#]?\s*(\+?[\d(][\d\s().-]{6,}\d)`),
		emailPattern:   regexp.MustCompile(`(?i)\be-?mail(?:\s+address)?\s*:\s*([^\s,;]+@[^\s,;]+)`),
		addressPattern: regexp.MustCompile(`(?i)\b(?:address|residence)\s*:\s*(\S.*?)\s*$`),
		accountPattern: regexp.MustCompile(`(?i)\baccount\s*(?:number|no\.?|#)?\s*[:#]\s*([A-Z0-9][A-Z0-9-]{3,})`),
		loanPattern:    regexp.MustCompile(`(?i)\bloan\s*(?:number|no\.?|#)\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{3,})`),
		employerLabel:  regexp.MustCompile(`(?i)\bemployer(?:\s+name)?\s*:\s*([^,;(\n]+?)\s*(?:[,;(]|$)`),
		amountPattern:  regexp.MustCompile(`\$\s?(\d{1,3}(?:,\d{3})+|\d+)(\.\d{1,2})?`),
		yearPattern:    regexp.MustCompile(`\b(19[5-9]\d|20\d{2})\b`),
		cityStateZip:   regexp.MustCompile(`^(.*?),\s*([^,]+?),\s*([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)$`),
		zipPattern:     regexp.MustCompile(`\b(\d{5}(?:-\d{4})?)\s*$`),
	}
}

// Name returns the strategy name
func (h *HeuristicStrategy) Name() string {
	return "heuristic"
}

const blank = " \t\f\v"

type borrowerBlock struct {
	candidate model.ExtractedBorrower
	employer  string
}

// Extract scans req.Text line by line
func (h *HeuristicStrategy) Extract(ctx context.Context, req Request) ([]model.ExtractedBorrower, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		blocks       []*borrowerBlock
		current      *borrowerBlock
		preambleLoan []string
	)
	paged := strings.Contains(req.Text, "\f")

	offset := 0 // byte offset of the current line
	for _, line := range strings.SplitAfter(req.Text, "\n") {
		lineStart := offset
		offset += len(line)
		content := strings.TrimRight(line, "\r\n")

		if m := h.namePattern.FindStringSubmatchIndex(content); m != nil {
			trimmedStart := lineStart + len(content) - len(strings.TrimLeft(content, blank))
			trimmedEnd := lineStart + len(strings.TrimRight(content, blank))
			start := runeOffset(req.Text, trimmedStart)
			end := runeOffset(req.Text, trimmedEnd)

			current = &borrowerBlock{
				candidate: model.ExtractedBorrower{
					Name:      content[m[2]:m[3]],
					Snippet:   req.Text[trimmedStart:trimmedEnd],
					CharStart: &start,
					CharEnd:   &end,
				},
			}
			if paged {
				current.candidate.PageNumber = 1 + strings.Count(req.Text[:trimmedStart], "\f")
			}
			current.candidate.LoanNumbers = append(current.candidate.LoanNumbers, preambleLoan...)
			blocks = append(blocks, current)
			continue
		}

		if current == nil {
			for _, id := range identifiers(h.loanPattern, content) {
				preambleLoan = appendUnique(preambleLoan, id)
			}
			continue
		}

		h.applyFields(current, content)
	}

	out := make([]model.ExtractedBorrower, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.candidate)
	}
	return out, nil
}

func (h *HeuristicStrategy) applyFields(b *borrowerBlock, line string) {
	c := &b.candidate

	if m := h.ssnPattern.FindStringSubmatch(line); m != nil && c.SSN == "" {
		c.SSN = m[1]
	}
	if m := h.phonePattern.FindStringSubmatch(line); m != nil && c.Phone == "" {
		c.Phone = strings.TrimSpace(m[1])
	}
	email := h.emailPattern.FindStringSubmatch(line)
	if email != nil && c.Email == "" {
		c.Email = strings.TrimRight(email[1], ".")
	}
	if m := h.addressPattern.FindStringSubmatch(line); m != nil && email == nil && c.Address == nil {
		c.Address = h.parseAddress(m[1])
	}
	for _, id := range identifiers(h.accountPattern, line) {
		c.AccountNumbers = appendUnique(c.AccountNumbers, id)
	}
	for _, id := range identifiers(h.loanPattern, line) {
		c.LoanNumbers = appendUnique(c.LoanNumbers, id)
	}
	if m := h.employerLabel.FindStringSubmatch(line); m != nil {
		b.employer = strings.TrimSpace(m[1])
	}
	if income, ok := h.parseIncome(line, b.employer); ok {
		c.IncomeHistory = append(c.IncomeHistory, income)
	}
}

// parseAddress splits "street, city, ST zip"; anything else is kept as the street
func (h *HeuristicStrategy) parseAddress(s string) *model.Address {
	if m := h.cityStateZip.FindStringSubmatch(s); m != nil {
		return &model.Address{
			Street:  strings.TrimSpace(m[1]),
			City:    strings.TrimSpace(m[2]),
			State:   strings.ToUpper(m[3]),
			ZipCode: m[4],
		}
	}
	addr := &model.Address{Street: s}
	if m := h.zipPattern.FindStringSubmatchIndex(s); m != nil {
		addr.ZipCode = s[m[2]:m[3]]
		addr.Street = strings.TrimRight(strings.TrimSpace(s[:m[0]]), ",")
	}
	return addr
}

// parseIncome reads a line mentioning income, salary or wages with a dollar amount
func (h *HeuristicStrategy) parseIncome(line, employer string) (model.IncomeRecord, bool) {
	lower := strings.ToLower(line)
	if !strings.Contains(lower, "income") && !strings.Contains(lower, "salary") && !strings.Contains(lower, "wages") {
		return model.IncomeRecord{}, false
	}

	loc := h.amountPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return model.IncomeRecord{}, false
	}
	digits := strings.ReplaceAll(line[loc[2]:loc[3]], ",", "")
	if loc[4] >= 0 {
		digits += line[loc[4]:loc[5]]
	}
	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return model.IncomeRecord{}, false
	}

	// The amount itself can look like a year ("$2000 monthly")
	year := 0
	if y := h.yearPattern.FindString(line[:loc[0]] + " " + line[loc[1]:]); y != "" {
		year, _ = strconv.Atoi(y)
	}

	lineEmployer := employer
	if em := h.employerLabel.FindStringSubmatch(line); em != nil {
		lineEmployer = strings.TrimSpace(em[1])
	}

	return model.IncomeRecord{
		Amount:     amount,
		Period:     incomePeriod(lower),
		Year:       year,
		SourceType: incomeSource(lower),
		Employer:   lineEmployer,
	}, true
}

func incomePeriod(lower string) string {
	switch {
	case strings.Contains(lower, "biweekly") || strings.Contains(lower, "bi-weekly"):
		return "biweekly"
	case strings.Contains(lower, "monthly") || strings.Contains(lower, "/mo"):
		return "monthly"
	case strings.Contains(lower, "weekly"):
		return "weekly"
	default:
		return "annual"
	}
}

func incomeSource(lower string) string {
	switch {
	case strings.Contains(lower, "self-employ") || strings.Contains(lower, "self employ"):
		return "self_employment"
	case strings.Contains(lower, "rental"):
		return "rental"
	case strings.Contains(lower, "social security"):
		return "social_security"
	case strings.Contains(lower, "pension") || strings.Contains(lower, "retirement"):
		return "retirement"
	default:
		return "employment"
	}
}

// runeOffset converts a byte offset in s to a rune offset
func runeOffset(s string, byteOffset int) int {
	return utf8.RuneCountInString(s[:byteOffset])
}

// identifiers returns the first capture of every match that contains a digit
func identifiers(re *regexp.Regexp, line string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(line, -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			out = append(out, m[1])
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
