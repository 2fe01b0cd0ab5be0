package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/oncofollow/oncofollow/pkg/textnorm"
)

var (
	newlines      = regexp.MustCompile(`[\r\n]+`)
	spaceRuns     = regexp.MustCompile(`\s{2,}`)
	nonDigits     = regexp.MustCompile(`[^0-9]`)
	phoneSplit    = regexp.MustCompile(`[:;,/]`)
	trailingZeros = regexp.MustCompile(`^(\d+)\.0+$`)
	nonAlnum      = regexp.MustCompile(`[^A-Z0-9]`)
)

// garbageIDWords are id-type labels and noise that show up in the id-number
// column when a source shifts its columns.
var garbageIDWords = []string{
	"CEDULA", "CIUDADANIA", "TARJETA", "IDENTIDAD", "PASAPORTE", "MENOR",
	"REGISTRO", "CIVIL", "EXTRANJERIA", "DOCUMENTO", "NUMERO", "PERMISO",
	"NOAPLICA", "NULL",
}

// cleanText trims s, strips one pair of wrapping double quotes, turns
// embedded line breaks into spaces and upper-cases the result.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = newlines.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.ToUpper(s)
}

// cleanEmail keeps addresses lower-case; they are case-insensitive in practice.
func cleanEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`)))
}

// cleanPhone extracts every plausible phone number from s and joins them
// with " / ". Segments that were mangled into scientific notation by a
// spreadsheet are discarded.
func cleanPhone(s string) string {
	var out []string
	seen := make(map[string]bool)
	for _, seg := range phoneSplit.Split(s, -1) {
		if strings.Contains(strings.ToUpper(seg), "E+") {
			continue
		}
		digits := nonDigits.ReplaceAllString(seg, "")
		if strings.HasPrefix(digits, "57") && len(digits) >= 12 {
			digits = digits[2:]
		}
		if len(digits) < 7 || seen[digits] {
			continue
		}
		seen[digits] = true
		out = append(out, digits)
	}
	return strings.Join(out, " / ")
}

// cleanID normalizes a document number: spreadsheet ".0" suffixes, thousands
// separators and any other punctuation are removed.
func cleanID(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
	if m := trailingZeros.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return nonAlnum.ReplaceAllString(textnorm.Fold(s), "")
}

// isGarbageID reports whether id is a label or noise rather than a real
// identifier.
func isGarbageID(id string) bool {
	s := strings.Join(strings.Fields(textnorm.Fold(id)), "")
	for _, w := range garbageIDWords {
		if strings.Contains(s, w) {
			return true
		}
	}
	var letters, digits int
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		}
	}
	if digits == 0 {
		return true
	}
	return letters > 3 && letters > digits
}

// calculateBirthDate approximates a birth date from an age as January 1st of
// (current year - age). It returns nil for anything outside 0..120.
func calculateBirthDate(age string, now time.Time) *time.Time {
	digits := nonDigits.ReplaceAllString(age, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n > 120 {
		return nil
	}
	d := time.Date(now.Year()-n, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

const (
	serialMin = 20000
	serialMax = 60000
	// unixEpochSerial is 1970-01-01 as a spreadsheet serial (1899-12-30 epoch).
	unixEpochSerial = 25569
	// sourceUTCOffset compensates for the UTC-5 clock the sources are written
	// in, so a serial date lands on the intended calendar day.
	sourceUTCOffset = 5 * time.Hour
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
}

// parseDate reads a spreadsheet serial or a date string. It never panics and
// returns nil for anything it cannot read.
func parseDate(value string) (result *time.Time) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
		}
	}()

	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(value), `"`))
	if v == "" {
		return nil
	}

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if f < serialMin || f > serialMax || math.IsNaN(f) {
			return nil
		}
		secs := int64(math.Round((f - unixEpochSerial) * 86400))
		t := time.Unix(secs, 0).UTC().Add(sourceUTCOffset)
		return &t
	}

	if strings.Contains(v, ":") {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}

	datePart, _, _ := strings.Cut(v, " ")
	datePart, _, _ = strings.Cut(datePart, "T")
	parts := strings.Split(strings.ReplaceAll(datePart, "-", "/"), "/")
	if len(parts) != 3 {
		return nil
	}

	var y, m, d string
	switch {
	case len(parts[0]) == 4:
		y, m, d = parts[0], parts[1], parts[2]
	case len(parts[2]) == 4:
		d, m, y = parts[0], parts[1], parts[2]
	default:
		return nil
	}

	year, errY := strconv.Atoi(y)
	month, errM := strconv.Atoi(m)
	day, errD := strconv.Atoi(d)
	if errY != nil || errM != nil || errD != nil {
		return nil
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject dates time.Date had to roll over, e.g. 31/02.
	if t.Day() != day {
		return nil
	}
	return &t
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
