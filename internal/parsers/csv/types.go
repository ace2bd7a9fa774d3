package csv

// Delimiter represents supported CSV delimiters
type Delimiter string

const (
	DelimiterComma     Delimiter = ","
	DelimiterSemicolon Delimiter = ";"
	DelimiterTab       Delimiter = "\t"
)

// Encoding represents supported source encodings
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
)

// Options represents CSV parser options
type Options struct {
	Delimiter     Delimiter `json:"delimiter,omitempty"`
	Encoding      Encoding  `json:"encoding,omitempty"`
	SkipEmptyRows bool      `json:"skipEmptyRows,omitempty"`
	QuoteChar     rune      `json:"quoteChar,omitempty"`
}

// DefaultOptions returns default CSV parser options
func DefaultOptions() Options {
	return Options{
		SkipEmptyRows: true,
		QuoteChar:     '"',
	}
}
