// Package xlsx parses partner Excel uploads into raw records keyed by header
// name. Some affiliate networks only offer player exports as XLSX.
package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/afflux/partner-service/internal/parsers/csv"
	"github.com/afflux/partner-service/internal/types"
)

// Options represents XLSX parser options
type Options struct {
	// SheetName selects a worksheet by name; empty means the first sheet.
	SheetName     string `json:"sheetName,omitempty"`
	SkipEmptyRows bool   `json:"skipEmptyRows,omitempty"`
}

// DefaultOptions returns default XLSX parser options
func DefaultOptions() Options {
	return Options{SkipEmptyRows: true}
}

// Parser reads XLSX content into raw records
type Parser struct {
	options Options
}

// NewParser creates a new XLSX parser
func NewParser(options Options) *Parser {
	return &Parser{options: options}
}

// Parse parses XLSX content. The first row of the selected sheet is the
// header; every following row becomes a raw record keyed by header name.
// Contact columns are dropped the same way the CSV parser drops them.
func (p *Parser) Parse(content []byte) ([]types.RawRecord, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, err := p.selectSheet(f)
	if err != nil {
		return nil, nil, err
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read worksheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("worksheet %q is empty", sheetName)
	}

	headers := make([]string, 0, len(rows[0]))
	dropped := make(map[int]bool)
	for i, cell := range rows[0] {
		h := strings.TrimSpace(cell)
		if csv.IsContactColumn(h) {
			dropped[i] = true
			log.Debug().Str("column", h).Msg("Dropping contact column")
			continue
		}
		headers = append(headers, h)
	}

	records := make([]types.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if p.options.SkipEmptyRows && isEmptyRow(row) {
			continue
		}

		record := make(types.RawRecord, len(headers))
		col := 0
		for i, cell := range row {
			if dropped[i] {
				continue
			}
			if col >= len(headers) {
				break
			}
			record[headers[col]] = strings.TrimSpace(cell)
			col++
		}
		records = append(records, record)
	}

	return records, headers, nil
}

func (p *Parser) selectSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no worksheets")
	}

	if p.options.SheetName == "" {
		return sheets[0], nil
	}

	for _, s := range sheets {
		if strings.EqualFold(s, p.options.SheetName) {
			return s, nil
		}
	}
	return "", fmt.Errorf("worksheet %q not found", p.options.SheetName)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
