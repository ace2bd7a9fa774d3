// Package csv parses partner CSV uploads into raw records keyed by header
// name. Delimiter and encoding are detected automatically when not set.
package csv

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/afflux/partner-service/internal/parsers/charset"
	"github.com/afflux/partner-service/internal/types"
)

// Parser reads CSV content into raw records
type Parser struct {
	options Options
}

// NewParser creates a new CSV parser with the given options
func NewParser(options Options) *Parser {
	if options.QuoteChar == 0 {
		options.QuoteChar = '"'
	}
	return &Parser{options: options}
}

// Parse decodes and parses CSV content. The first non-empty row is the
// header; every following row becomes a raw record keyed by header name.
// Columns carrying personal contact data are dropped here and never leave
// the parser.
func (p *Parser) Parse(content []byte) ([]types.RawRecord, []string, error) {
	opts := p.options

	if opts.Encoding == "" {
		opts.Encoding = Encoding(charset.DetectEncoding(content))
	}

	decoded, err := charset.Decode(content, charset.Encoding(opts.Encoding))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode content: %w", err)
	}

	if opts.Delimiter == "" {
		opts.Delimiter = DetectDelimiter(decoded)
	}

	lines := splitLines(decoded)
	delimRune := rune(opts.Delimiter[0])

	var headers []string
	headerSeen := false
	dropped := make(map[int]bool)
	records := make([]types.RawRecord, 0, len(lines))

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := SplitLine(line, delimRune, opts.QuoteChar)
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}

		if !headerSeen {
			headerSeen = true
			headers = make([]string, 0, len(fields))
			for i, h := range fields {
				if IsContactColumn(h) {
					dropped[i] = true
					log.Debug().Str("column", h).Msg("Dropping contact column")
					continue
				}
				headers = append(headers, h)
			}
			continue
		}

		if opts.SkipEmptyRows && isEmptyRow(fields) {
			continue
		}

		record := make(types.RawRecord, len(headers))
		col := 0
		for i, value := range fields {
			if dropped[i] {
				continue
			}
			if col >= len(headers) {
				break
			}
			record[headers[col]] = value
			col++
		}
		records = append(records, record)
	}

	if !headerSeen {
		return nil, nil, fmt.Errorf("empty CSV content")
	}

	return records, headers, nil
}

// splitLines splits content into lines handling different line endings
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}

// isEmptyRow checks if a row is empty
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
