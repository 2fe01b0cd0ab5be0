package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/oncofollow/oncofollow/pkg/textnorm"
)

// ErrUnreadableSource means the input has no parseable rows or no
// recognizable header. It aborts the whole import.
var ErrUnreadableSource = errors.New("unreadable source")

const (
	FormatWorkbook  = "workbook"
	FormatDelimited = "delimited"

	headerScanLines      = 50
	minStructuredColumns = 3
	// minFieldRatio is the share of header columns a delimited line must
	// have to be accepted; shorter lines are broken fragments.
	minFieldRatio = 0.3
)

// headerMarkers are normalized fragments that only appear on the header line.
var headerMarkers = []string{"numero_de_identificacion", "cedula", "tipo_de_nota", "estado_de_la_solicitud"}

var lineBreaks = regexp.MustCompile(`\r\n|\n|\r`)

// Reader yields the data rows of one source file in order. It holds the
// whole file in memory and keeps no cursor outside the value, so reading a
// file again means opening it again.
type Reader struct {
	Format    string
	Delimiter rune

	header []string
	rows   rawRows
	broken int
}

type rawRows interface {
	next() (fields []string, line int, ok bool)
}

// NewReader detects the file format of data. A workbook is tried first; the
// delimited-text reader takes over when the workbook cannot be opened or
// does not look like a follow-up table.
func NewReader(data []byte) (*Reader, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableSource)
	}
	if r, ok := readWorkbook(data); ok {
		return r, nil
	}
	return readDelimited(data)
}

// Header returns the normalized header names.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// BrokenLines counts lines skipped because they had too few fields.
func (r *Reader) BrokenLines() int {
	return r.broken
}

// Next returns the next data row, or io.EOF after the last one.
func (r *Reader) Next() (Row, error) {
	for {
		fields, line, ok := r.rows.next()
		if !ok {
			return Row{}, io.EOF
		}
		if isBlank(fields) {
			continue
		}
		if r.Format == FormatDelimited && float64(len(fields)) < minFieldRatio*float64(len(r.header)) {
			r.broken++
			continue
		}
		row := Row{Line: line, Cells: make([]Cell, len(r.header))}
		for i, h := range r.header {
			v := ""
			if i < len(fields) {
				v = cleanCell(fields[i])
			}
			row.Cells[i] = Cell{Header: h, Value: v}
		}
		return row, nil
	}
}

// =========== Workbook ===========

type sliceRows struct {
	rows   [][]string
	offset int
	pos    int
}

func (s *sliceRows) next() ([]string, int, bool) {
	if s.pos >= len(s.rows) {
		return nil, 0, false
	}
	row := s.rows[s.pos]
	s.pos++
	return row, s.offset + s.pos, true
}

func readWorkbook(data []byte) (*Reader, bool) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false
	}
	// Raw values keep date cells as serial numbers, which parseDate reads.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false
	}

	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 || headerIdx+1 >= len(rows) {
		return nil, false
	}
	if !usableHeader(rows[headerIdx]) {
		return nil, false
	}

	body := rows[headerIdx+1:]
	hasData := false
	for _, row := range body {
		if !isBlank(row) {
			hasData = true
			break
		}
	}
	if !hasData {
		return nil, false
	}

	return &Reader{
		Format: FormatWorkbook,
		header: normalizeHeader(rows[headerIdx]),
		rows:   &sliceRows{rows: body, offset: headerIdx + 1},
	}, true
}

// findHeaderRow returns the first row carrying a header marker, else the
// first non-blank row, else -1.
func findHeaderRow(rows [][]string) int {
	first := -1
	for i, row := range rows {
		if i >= headerScanLines {
			break
		}
		if isBlank(row) {
			continue
		}
		if first < 0 {
			first = i
		}
		if hasHeaderMarker(strings.Join(row, " ")) {
			return i
		}
	}
	return first
}

// usableHeader rejects headers with fewer than three distinct names or that
// look like a delimited line stuffed into one cell.
func usableHeader(raw []string) bool {
	distinct := make(map[string]bool)
	for _, h := range raw {
		if strings.ContainsRune(h, ';') || strings.Count(h, ",") > 1 {
			return false
		}
		if key := textnorm.HeaderKey(h); key != "" {
			distinct[key] = true
		}
	}
	return len(distinct) >= minStructuredColumns
}

// =========== Delimited text ===========

type lineRows struct {
	lines  []string
	delim  rune
	offset int
	pos    int
}

func (l *lineRows) next() ([]string, int, bool) {
	if l.pos >= len(l.lines) {
		return nil, 0, false
	}
	line := l.lines[l.pos]
	l.pos++
	return splitQuoted(line, l.delim), l.offset + l.pos, true
}

func readDelimited(data []byte) (*Reader, error) {
	text := textnorm.DecodeSingleByte(data)
	lines := lineBreaks.Split(text, -1)

	headerIdx := -1
	for i, line := range lines {
		if i >= headerScanLines {
			break
		}
		if hasHeaderMarker(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row in the first %d lines", ErrUnreadableSource, headerScanLines)
	}

	headerLine := lines[headerIdx]
	delim := ','
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		delim = ';'
	}

	return &Reader{
		Format:    FormatDelimited,
		Delimiter: delim,
		header:    normalizeHeader(splitQuoted(headerLine, delim)),
		rows:      &lineRows{lines: lines[headerIdx+1:], delim: delim, offset: headerIdx + 1},
	}, nil
}

// splitQuoted splits line on delim, ignoring delimiters inside double
// quotes. Quote characters are dropped.
func splitQuoted(line string, delim rune) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == delim && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, field.String())
}

// =========== Helpers ===========

func hasHeaderMarker(line string) bool {
	key := textnorm.HeaderKey(line)
	for _, m := range headerMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

func normalizeHeader(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = textnorm.HeaderKey(c)
	}
	return out
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
