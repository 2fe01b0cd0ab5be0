// Package textnorm holds the text folding rules shared by header matching,
// keyword classification and identifier checks.
package textnorm

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonKeyRun = regexp.MustCompile(`[^a-z0-9]+`)
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// StripAccents removes combining marks, so "Imagenología" becomes "Imagenologia"
// and "Ñ" becomes "N".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold trims, strips accents and upper-cases s. It is the comparison form
// used for keyword matching.
func Fold(s string) string {
	return strings.ToUpper(StripAccents(strings.TrimSpace(s)))
}

// HeaderKey normalizes a column header: trimmed, lower-cased, accents
// stripped and every run of characters outside [a-z0-9] replaced by "_".
func HeaderKey(s string) string {
	s = strings.ToLower(StripAccents(strings.TrimSpace(s)))
	return nonKeyRun.ReplaceAllString(s, "_")
}

// DecodeSingleByte turns raw file bytes into text without failing on legacy
// encodings. Valid UTF-8 is kept as is; anything else is read as Windows-1252,
// a superset of Latin-1 in which every byte maps to a character.
func DecodeSingleByte(b []byte) string {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		out, _ = charmap.ISO8859_1.NewDecoder().Bytes(b)
	}
	return string(out)
}
