package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// SystemPrompt constrains the model to verbatim, source-attributed extraction
const SystemPrompt = `You extract borrower information from loan documents.

RULES:
1. Only report values that appear in the text. Never infer or invent values.
2. For each borrower, "snippet" MUST be copied character for character from the text
   (the line or phrase naming the borrower). It is used to locate the source.
3. Omit fields that are not present. Do not output placeholders such as "N/A".
4. Income amounts are plain numbers without currency symbols or commas.
5. Respond with JSON only, no prose and no code fences.`

// BuildExtractionPrompt constructs the user prompt for one chunk and pass.
// Later passes ask the model to re-read the chunk for borrowers it may have missed.
func BuildExtractionPrompt(chunk model.TextSegment, doc model.DocumentMeta, pass, passes int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Document: %s\n", doc.Name)
	fmt.Fprintf(&b, "Chunk %d of %d, pass %d of %d.\n", chunk.Index+1, chunk.TotalCount, pass+1, passes)
	if pass > 0 {
		b.WriteString("Re-read the text carefully. Include co-borrowers and borrowers mentioned only once.\n")
	}

	b.WriteString(`
Return a JSON object of this shape:
{"borrowers": [{
  "name": "full name",
  "ssn": "NNN-NN-NNNN",
  "phone": "as written",
  "email": "as written",
  "address": {"street": "", "city": "", "state": "", "zip_code": ""},
  "income_history": [{"amount": 85000.00, "period": "annual|monthly|biweekly|weekly|hourly", "year": 2024, "source_type": "employment|self_employment|rental|other", "employer": ""}],
  "account_numbers": [],
  "loan_numbers": [],
  "snippet": "exact text naming the borrower",
  "page_number": 0
}]}
If there are no borrowers, return {"borrowers": []}.

TEXT:
<<<
`)
	b.WriteString(chunk.Text)
	b.WriteString("\n>>>\n")

	return b.String()
}

type borrowersEnvelope struct {
	Borrowers []model.ExtractedBorrower `json:"borrowers"`
}

// ParseBorrowers decodes a model answer. It accepts the documented object, a
// bare array, and either wrapped in a markdown code fence.
func ParseBorrowers(text string) ([]model.ExtractedBorrower, error) {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var borrowers []model.ExtractedBorrower
	switch {
	case strings.HasPrefix(text, "["):
		if err := json.Unmarshal([]byte(text), &borrowers); err != nil {
			return nil, fmt.Errorf("parse borrower array: %w", err)
		}
	default:
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end < start {
			return nil, fmt.Errorf("parse borrowers: no JSON object in response")
		}
		var env borrowersEnvelope
		if err := json.Unmarshal([]byte(text[start:end+1]), &env); err != nil {
			return nil, fmt.Errorf("parse borrower object: %w", err)
		}
		borrowers = env.Borrowers
	}

	out := borrowers[:0]
	for _, b := range borrowers {
		b.Name = strings.TrimSpace(b.Name)
		if b.Name == "" {
			continue
		}
		// Offsets are computed locally from the snippet, never trusted from the model
		b.CharStart, b.CharEnd = nil, nil
		out = append(out, b)
	}
	return out, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
