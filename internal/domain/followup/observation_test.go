package followup

import "testing"

func TestNote(t *testing.T) {
	tests := []struct {
		obs  string
		want string
	}{
		{"", ""},
		{"LLAMAR EN LA TARDE", "LLAMAR EN LA TARDE"},
		{"LLAMAR | BARRERA: TRANSPORTE", "LLAMAR"},
		{"| DX SUGERIDO: 1= CAC Mama", ""},
	}
	for _, tt := range tests {
		if got := Note(tt.obs); got != tt.want {
			t.Errorf("Note(%q) = %q, want %q", tt.obs, got, tt.want)
		}
	}
}

func TestTags(t *testing.T) {
	tags := Tags("NOTA | BARRERA: TRANSPORTE | RESP: ANA | sin dos puntos")
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d: %+v", len(tags), tags)
	}
	if tags[0].Key != TagBarrera || tags[0].Value != "TRANSPORTE" {
		t.Errorf("unexpected first tag: %+v", tags[0])
	}
	if tags[1].Key != TagResp || tags[1].Value != "ANA" {
		t.Errorf("unexpected second tag: %+v", tags[1])
	}
}

func TestAppendTag_Idempotent(t *testing.T) {
	obs, changed := AppendTag("NOTA", TagDxSugerido, "1= CAC Mama")
	if !changed {
		t.Fatal("expected first append to change the observation")
	}
	if obs != "NOTA | DX SUGERIDO: 1= CAC Mama" {
		t.Errorf("unexpected observation: %q", obs)
	}

	again, changed := AppendTag(obs, TagDxSugerido, "1= CAC Mama")
	if changed || again != obs {
		t.Errorf("expected second append to be a no-op, got %q", again)
	}

	other, changed := AppendTag(obs, TagDxSugerido, "3= CAC Colon y recto")
	if !changed {
		t.Error("expected a different value for the same key to be appended")
	}
	if !HasTag(other, TagDxSugerido, "1= CAC Mama") || !HasTag(other, TagDxSugerido, "3= CAC Colon y recto") {
		t.Errorf("expected both values present: %q", other)
	}
}

func TestAppendTag_BlankValue(t *testing.T) {
	obs, changed := AppendTag("NOTA", TagResp, "  ")
	if changed || obs != "NOTA" {
		t.Errorf("blank value must not be appended, got %q", obs)
	}
}

func TestAppendTag_EmptyNote(t *testing.T) {
	obs, _ := AppendTag("", TagTipo, "PRIMERA VEZ")
	if obs != "| TIPO: PRIMERA VEZ" {
		t.Errorf("unexpected observation: %q", obs)
	}
	if Note(obs) != "" {
		t.Errorf("expected empty note, got %q", Note(obs))
	}
}

func TestBuildObservation(t *testing.T) {
	obs := BuildObservation("PACIENTE REFIERE | DOLOR",
		Tag{Key: TagBarrera, Value: "TRANSPORTE"},
		Tag{Key: TagTipo, Value: ""},
		Tag{Key: TagResp, Value: "ANA"},
	)
	want := "PACIENTE REFIERE / DOLOR | BARRERA: TRANSPORTE | RESP: ANA"
	if obs != want {
		t.Errorf("got %q, want %q", obs, want)
	}
	if Note(obs) != "PACIENTE REFIERE / DOLOR" {
		t.Errorf("pipe inside the note must not split it: %q", Note(obs))
	}
}
