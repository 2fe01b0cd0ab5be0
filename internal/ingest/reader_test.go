package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func readAll(t *testing.T, r *Reader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		rows = append(rows, row)
	}
}

func buildWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := r
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReader_Workbook(t *testing.T) {
	data := buildWorkbook(t,
		[]interface{}{"REPORTE DE SEGUIMIENTO"},
		[]interface{}{"Número de identificación", "Nombre del servicio", "Fecha de la solicitud"},
		[]interface{}{12345678, "Quimioterapia ciclo 1", 45000},
		[]interface{}{},
		[]interface{}{87654321, "Mamografía"},
	)
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if r.Format != FormatWorkbook {
		t.Fatalf("expected workbook, got %s", r.Format)
	}
	if h := r.Header(); h[0] != "numero_de_identificacion" {
		t.Errorf("unexpected header %v", h)
	}

	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := rows[0].Resolve(FieldDoc); got != "12345678" {
		t.Errorf("doc = %q", got)
	}
	if got := rows[0].Resolve(FieldFechaAten); got != "45000" {
		t.Errorf("date cell should surface as serial, got %q", got)
	}
	if rows[0].Line != 3 || rows[1].Line != 5 {
		t.Errorf("unexpected line numbers %d, %d", rows[0].Line, rows[1].Line)
	}
	if got := rows[1].Resolve(FieldFechaAten); got != "" {
		t.Errorf("short row should pad with empty cells, got %q", got)
	}
}

func TestReader_WorkbookWithUnsplitHeaderFallsBack(t *testing.T) {
	// A delimited export opened by a spreadsheet: every line sits in column A.
	data := buildWorkbook(t,
		[]interface{}{"cedula;servicio;estado"},
		[]interface{}{"123;QUIMIO;ATENDIDA"},
	)
	_, err := NewReader(data)
	if !errors.Is(err, ErrUnreadableSource) {
		t.Fatalf("expected the delimited reader to reject zip bytes, got %v", err)
	}
}

func TestReader_DelimitedSemicolon(t *testing.T) {
	src := strings.Join([]string{
		"CLINICA ONCOLOGICA",
		"Reporte mensual",
		`Cedula;Nombre del servicio;Nota realizada;Observaciones`,
		`12345678;QUIMIOTERAPIA CICLO 1;SI;"llamar; antes de las 8"`,
		`broken`,
		``,
		`87654321;MAMOGRAFIA;;`,
	}, "\r\n")

	r, err := NewReader([]byte(src))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if r.Format != FormatDelimited || r.Delimiter != ';' {
		t.Fatalf("expected ';' delimited, got %s %q", r.Format, r.Delimiter)
	}
	rows := readAll(t, r)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if r.BrokenLines() != 1 {
		t.Errorf("expected 1 broken line, got %d", r.BrokenLines())
	}
	if rows[0].Line != 4 {
		t.Errorf("expected line 4, got %d", rows[0].Line)
	}
	if got := rows[0].Resolve(FieldObs); got != "llamar; antes de las 8" {
		t.Errorf("quoted delimiter split: %q", got)
	}
	if got := rows[1].Resolve(FieldServicio); got != "MAMOGRAFIA" {
		t.Errorf("servicio = %q", got)
	}
}

func TestReader_DelimitedComma(t *testing.T) {
	src := "tipo_de_nota,cedula,servicio\nEVOLUCION,1234567,\"CONSULTA, CONTROL\"\n"
	r, err := NewReader([]byte(src))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if r.Delimiter != ',' {
		t.Errorf("expected ',', got %q", r.Delimiter)
	}
	rows := readAll(t, r)
	if len(rows) != 1 || rows[0].Resolve(FieldServicio) != "CONSULTA, CONTROL" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReader_DelimitedLegacyEncoding(t *testing.T) {
	utf := "Número de identificación;Nombre del servicio\n1234567;TOMOGRAFÍA\n"
	latin, err := charmap.Windows1252.NewEncoder().String(utf)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewReader([]byte(latin))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows := readAll(t, r)
	if len(rows) != 1 || rows[0].Resolve(FieldServicio) != "TOMOGRAFÍA" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestReader_Unreadable(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"no header": []byte("a;b;c\n1;2;3\n"),
		"binary":    {0x00, 0x01, 0x02},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := NewReader(data); !errors.Is(err, ErrUnreadableSource) {
				t.Errorf("expected ErrUnreadableSource, got %v", err)
			}
		})
	}
}

func TestSplitQuoted(t *testing.T) {
	got := splitQuoted(`a;"b;c";;d`, ';')
	want := []string{"a", "b;c", "", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}
}
