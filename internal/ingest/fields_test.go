package ingest

import "testing"

func testRow(pairs ...string) Row {
	r := Row{Line: 2}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Cells = append(r.Cells, Cell{Header: pairs[i], Value: pairs[i+1]})
	}
	return r
}

func TestResolve_SubstringMatch(t *testing.T) {
	r := testRow(
		"Número de Identificación del Paciente", "12345678",
		"Nombre del servicio", "QUIMIOTERAPIA",
		"Teléfono celular", "3001234567",
	)
	if got := r.Resolve(FieldDoc); got != "12345678" {
		t.Errorf("doc = %q", got)
	}
	if got := r.Resolve(FieldServicio); got != "QUIMIOTERAPIA" {
		t.Errorf("servicio = %q", got)
	}
	if got := r.Resolve(FieldTel); got != "3001234567" {
		t.Errorf("tel = %q", got)
	}
	if got := r.Resolve(FieldEmail); got != "" {
		t.Errorf("email should be empty, got %q", got)
	}
}

func TestResolve_DocSkipsTypeColumn(t *testing.T) {
	r := testRow(
		"Tipo de identificación", "CC",
		"Identificación", "12345678",
	)
	if got := r.Resolve(FieldDoc); got != "12345678" {
		t.Errorf("doc = %q, want the number column", got)
	}
	if got := r.Resolve(FieldTipoDoc); got != "CC" {
		t.Errorf("tipo_doc = %q", got)
	}
}

func TestResolve_AliasOrderBeatsColumnOrder(t *testing.T) {
	r := testRow(
		"Estado", "ACTIVO",
		"Estado de la cita", "ASIGNADA",
	)
	if got := r.Resolve(FieldEstadoCita); got != "ASIGNADA" {
		t.Errorf("estado_cita = %q, want the more specific alias", got)
	}
}

func TestResolve_CodeAndDescriptionColumns(t *testing.T) {
	r := testRow(
		"Descripción CUPS", "MAMOGRAFIA BILATERAL",
		"Código CUPS", "876802",
	)
	if got := r.Resolve(FieldCups); got != "876802" {
		t.Errorf("cups = %q", got)
	}
	if got := r.Resolve(FieldServicio); got != "MAMOGRAFIA BILATERAL" {
		t.Errorf("servicio = %q", got)
	}
}

func TestResolve_NormalizedKeys(t *testing.T) {
	r := testRow("fecha_de_la_solicitud", "01/03/2024", "TIPO DE NOTA", "EVOLUCION")
	if got := r.Resolve(FieldFechaAten); got != "01/03/2024" {
		t.Errorf("fecha_aten = %q", got)
	}
	if got := r.Resolve(FieldTipoNota); got != "EVOLUCION" {
		t.Errorf("tipo_nota = %q", got)
	}
}
