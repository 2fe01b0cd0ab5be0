package textnorm

import "testing"

func TestStripAccents(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Imagenología", "Imagenologia"},
		{"Clínica del Dolor", "Clinica del Dolor"},
		{"RIÑÓN", "RINON"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripAccents(tt.in); got != tt.want {
			t.Errorf("StripAccents(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  Mamografía bilateral "); got != "MAMOGRAFIA BILATERAL" {
		t.Errorf("unexpected fold: %q", got)
	}
}

func TestHeaderKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Número de Identificación del Paciente", "numero_de_identificacion_del_paciente"},
		{"  ESTADO DE LA SOLICITUD ", "estado_de_la_solicitud"},
		{"Tipo-de/Nota", "tipo_de_nota"},
		{"E-mail", "e_mail"},
		{"Teléfono (1)", "telefono_1_"},
	}
	for _, tt := range tests {
		if got := HeaderKey(tt.in); got != tt.want {
			t.Errorf("HeaderKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeSingleByte(t *testing.T) {
	// "Cédula" in Windows-1252.
	latin := []byte{'C', 0xE9, 'd', 'u', 'l', 'a'}
	if got := DecodeSingleByte(latin); got != "Cédula" {
		t.Errorf("expected Cédula, got %q", got)
	}

	utf := []byte("\xEF\xBB\xBFCédula")
	if got := DecodeSingleByte(utf); got != "Cédula" {
		t.Errorf("expected BOM stripped and UTF-8 kept, got %q", got)
	}
}
