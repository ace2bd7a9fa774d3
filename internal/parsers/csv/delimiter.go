package csv

import "strings"

// detectionSampleLines is how many non-empty lines feed delimiter detection
const detectionSampleLines = 5

// DetectDelimiter guesses the delimiter from the leading lines of the file.
// The winning candidate appears on every sampled line with the most even
// count; a delimiter that fluctuates between lines is almost certainly
// embedded data, not structure.
func DetectDelimiter(content string) Delimiter {
	var sample []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sample = append(sample, trimmed)
			if len(sample) == detectionSampleLines {
				break
			}
		}
	}
	if len(sample) == 0 {
		return DelimiterComma
	}

	best := DelimiterComma
	bestScore := 0.0
	for _, candidate := range []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab} {
		if score := delimiterScore(sample, string(candidate)); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// delimiterScore rewards frequent, consistent per-line occurrence counts
func delimiterScore(lines []string, delim string) float64 {
	mean := 0.0
	counts := make([]float64, len(lines))
	for i, line := range lines {
		counts[i] = float64(strings.Count(line, delim))
		mean += counts[i]
	}
	mean /= float64(len(counts))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(counts))

	return mean / (1 + variance)
}

// SplitLine splits one CSV line on the delimiter, honoring quoted fields.
// A doubled quote inside a quoted field is an escaped literal quote.
func SplitLine(line string, delimiter rune, quoteChar rune) []string {
	fields := make([]string, 0, 10)
	var field strings.Builder
	inQuotes := false
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuotes && r == quoteChar:
			if i+1 < len(runes) && runes[i+1] == quoteChar {
				field.WriteRune(quoteChar)
				i++
			} else {
				inQuotes = false
			}
		case !inQuotes && r == quoteChar:
			inQuotes = true
		case !inQuotes && r == delimiter:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, field.String())
}
