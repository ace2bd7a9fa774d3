// Package charset decodes partner file uploads to UTF-8. Affiliate networks
// in Central and Eastern Europe still deliver CSV exports in legacy 8-bit
// encodings, so everything is normalized before parsing.
package charset

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingISO88592    Encoding = "iso-8859-2"
)

// DetectEncoding detects the encoding of a byte buffer. Valid UTF-8 always
// wins; anything else is assumed Windows-1250, the most common legacy
// encoding in partner exports.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// Decode converts a byte buffer from the specified encoding to a UTF-8
// string. If the data is already valid UTF-8 it is returned as-is regardless
// of the requested encoding, which avoids double-decoding when a partner
// config claims a legacy encoding but the upload is actually UTF-8.
func Decode(data []byte, enc Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), nil
	}

	var decoder transform.Transformer
	switch enc {
	case EncodingISO88592:
		decoder = charmap.ISO8859_2.NewDecoder()
	default:
		decoder = charmap.Windows1250.NewDecoder()
	}

	decoded, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ToUTF8Reader wraps a reader with a decoder converting to UTF-8
func ToUTF8Reader(r io.Reader, enc Encoding) io.Reader {
	switch enc {
	case EncodingWindows1250:
		return transform.NewReader(r, charmap.Windows1250.NewDecoder())
	case EncodingISO88592:
		return transform.NewReader(r, charmap.ISO8859_2.NewDecoder())
	default:
		return r
	}
}
