package pdfextract

import (
	"regexp"
	"strings"

	"findex/internal/dateutils"
	"findex/internal/models"
)

// currencyToken matches currency-like numeric tokens: an optional symbol or
// code, thousands separators, and a mandatory two-decimal fraction or a
// plain integer of four or more digits. The decimal requirement filters out
// quantities and reference numbers on the same line.
var currencyToken = regexp.MustCompile(
	`(?:\$|€|£|USD|EUR|CHF|GBP)\s?-?\d{1,3}(?:[',. ]\d{3})*(?:\.\d{2})?` +
		`|-?\d{1,3}(?:[',]\d{3})+(?:\.\d{2})?` +
		`|-?\d+\.\d{2}\b`)

// dateToken matches common date shapes inside a free-text line.
var dateToken = regexp.MustCompile(
	`\b\d{4}[-/]\d{2}[-/]\d{2}\b|\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b`)

// scanLines flags lines containing currency-like tokens as candidate
// transactions, pairing each with the nearest preceding descriptive text on
// the same or previous line.
func scanLines(text string, confidence float64) []models.CandidateTransaction {
	var candidates []models.CandidateTransaction
	lines := strings.Split(text, "\n")
	prevDescriptive := ""

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		tokens := currencyToken.FindAllString(line, -1)
		if len(tokens) == 0 {
			if isDescriptive(line) {
				prevDescriptive = line
			}
			continue
		}

		amountStr := tokens[len(tokens)-1] // rightmost token is usually the line total
		amount, err := models.ParseAmount(amountStr)
		if err != nil {
			continue
		}

		description := descriptionBeforeToken(line, amountStr)
		if description == "" {
			description = prevDescriptive
		}
		if description == "" {
			continue
		}

		var candidate models.CandidateTransaction
		candidate.Description = description
		candidate.Amount = models.NewMoney(amount, currencyFromToken(amountStr))
		candidate.Location = models.SourceLocation{Line: i + 1}
		candidate.Confidence = confidence

		if m := dateToken.FindString(line); m != "" {
			candidate.Date = dateutils.TryParseDate(m)
		}

		candidates = append(candidates, candidate)
		prevDescriptive = ""
	}

	return candidates
}

// descriptionBeforeToken returns the descriptive text preceding the amount
// token on the same line, stripped of dates and trailing separators.
func descriptionBeforeToken(line, token string) string {
	idx := strings.LastIndex(line, token)
	if idx <= 0 {
		return ""
	}
	before := line[:idx]
	before = dateToken.ReplaceAllString(before, "")
	before = currencyToken.ReplaceAllString(before, "")
	before = strings.Trim(before, " \t.:-|")
	if !isDescriptive(before) {
		return ""
	}
	return before
}

// isDescriptive requires at least three letters so page furniture like
// column rules and lone numbers are not mistaken for descriptions.
func isDescriptive(s string) bool {
	letters := 0
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			letters++
		}
	}
	return letters >= 3
}

func currencyFromToken(token string) string {
	switch {
	case strings.Contains(token, "$") || strings.Contains(token, "USD"):
		return "USD"
	case strings.Contains(token, "€") || strings.Contains(token, "EUR"):
		return "EUR"
	case strings.Contains(token, "£") || strings.Contains(token, "GBP"):
		return "GBP"
	case strings.Contains(token, "CHF"):
		return "CHF"
	}
	return ""
}
