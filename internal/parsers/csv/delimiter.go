package csv

import "strings"

var candidateDelimiters = []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab, DelimiterPipe}

// DetectDelimiter detects the CSV delimiter by analyzing the first few lines
func DetectDelimiter(content string) Delimiter {
	// Take first 5 non-empty lines
	sampleLines := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			sampleLines = append(sampleLines, trimmed)
			if len(sampleLines) >= 5 {
				break
			}
		}
	}

	// a partial last line of a byte sample skews the counts
	if len(sampleLines) > 2 && !strings.HasSuffix(content, "\n") {
		sampleLines = sampleLines[:len(sampleLines)-1]
	}

	if len(sampleLines) == 0 {
		return DelimiterComma
	}

	bestDelimiter := DelimiterComma
	maxConsistency := 0.0

	for _, delim := range candidateDelimiters {
		counts := make([]int, 0, len(sampleLines))
		sum := 0
		for _, line := range sampleLines {
			c := countOutsideQuotes(line, rune(delim[0]))
			counts = append(counts, c)
			sum += c
		}

		avgCount := float64(sum) / float64(len(counts))
		if avgCount == 0 {
			continue
		}

		// Check consistency - all lines should have similar counts
		variance := 0.0
		for _, c := range counts {
			diff := float64(c) - avgCount
			variance += diff * diff
		}
		variance /= float64(len(counts))

		consistency := avgCount / (1.0 + variance)
		if consistency > maxConsistency {
			maxConsistency = consistency
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// countOutsideQuotes counts delimiter runes that are not inside a quoted field
func countOutsideQuotes(line string, delim rune) int {
	count := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			count++
		}
	}
	return count
}
