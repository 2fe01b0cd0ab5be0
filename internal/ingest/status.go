package ingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/oncofollow/oncofollow/internal/domain/followup"
	"github.com/oncofollow/oncofollow/pkg/textnorm"
)

// Keyword stems matched as substrings of the folded appointment-state and
// note-type texts.
var (
	realizedStates   = []string{"REALIZAD", "ATENDID", "ASISTI", "FACTURAD", "FINALIZAD", "CUMPLID", "COMPLET"}
	realizedNotes    = []string{"PROCEDIMIENTO", "CONSULTA", "EVOLUCION", "EPICRISIS"}
	scheduledStates  = []string{"ASIGNAD", "PROGRAMAD", "AGENDAD", "CITAD"}
	cancelledStates  = []string{"CANCELAD", "NO ASISTI", "INASIST", "FALLID", "ANULAD", "RECHAZAD"}
	inProcessStates  = []string{"TRAMITE", "GESTION", "AUTORIZ", "ADMINISTRATIV", "PROCESO"}
	// missedStates are completion stems that, when negated, mean the visit
	// did not take place.
	missedStates = []string{"REALIZAD", "ATENDID", "ASISTI", "CUMPLID"}
)

// negatedMarkers are completion-marker answers meaning "not done", compared
// with punctuation and spaces removed.
var negatedMarkers = map[string]bool{
	"NO": true, "N": true, "0": true, "FALSE": true, "FALSO": true,
	"PENDIENTE": true, "NA": true, "NINGUNA": true, "NINGUNO": true,
}

// negationWords negate a completion stem up to two words later, as in
// "NO REALIZADA" or "NO FUE ATENDIDO".
var negationWords = map[string]bool{"NO": true, "SIN": true, "NUNCA": true}

var nonAlnumRuns = regexp.MustCompile(`[^A-Z0-9]+`)

// StatusSignals are the cleaned inputs of status inference.
type StatusSignals struct {
	AppointmentState string
	NoteType         string
	NoteDone         string
	HasAppointment   bool
}

// InferStatus decides a follow-up status. Rules are checked in priority
// order and the first match wins.
func InferStatus(s StatusSignals) followup.Status {
	state := textnorm.Fold(s.AppointmentState)
	note := textnorm.Fold(s.NoteType)

	switch {
	case markerSet(s.NoteDone), attended(state), containsAny(note, realizedNotes):
		return followup.StatusRealizado
	case containsAny(state, scheduledStates), s.HasAppointment:
		return followup.StatusAgendado
	case containsAny(state, cancelledStates), missed(state):
		return followup.StatusCancelado
	case containsAny(state, inProcessStates):
		return followup.StatusEnGestion
	default:
		return followup.StatusPendiente
	}
}

// ResolveAppointment applies the realized post-rule: a realized visit with no
// captured appointment date is dated on its request date.
func ResolveAppointment(status followup.Status, appointment *time.Time, request time.Time) *time.Time {
	if status == followup.StatusRealizado && appointment == nil {
		d := request
		return &d
	}
	return appointment
}

// markerSet reports whether a note-completion marker is present and not a
// negative or placeholder answer.
func markerSet(marker string) bool {
	words := strings.Fields(nonAlnumRuns.ReplaceAllString(textnorm.Fold(marker), " "))
	if len(words) == 0 {
		return false
	}
	if negationWords[words[0]] {
		return false
	}
	return !negatedMarkers[strings.Join(words, "")]
}

// attended reports an affirmed completion stem. "NO REALIZADA",
// "SIN ATENDER" and "INCOMPLETO" are not attended.
func attended(state string) bool {
	affirmed, _ := matchStems(state, realizedStates)
	return affirmed
}

// missed reports a negated attendance stem, such as "NO ATENDIDO".
func missed(state string) bool {
	_, negated := matchStems(state, missedStates)
	return negated
}

// matchStems looks for stems inside the words of state. A stem counts as
// negated when one of the two preceding words is a negation or when the
// word prefixes it with "IN" ("INCOMPLETO", "INASISTENCIA").
func matchStems(state string, stems []string) (affirmed, negated bool) {
	words := strings.Fields(nonAlnumRuns.ReplaceAllString(state, " "))
	for i, w := range words {
		for _, stem := range stems {
			idx := strings.Index(w, stem)
			if idx < 0 {
				continue
			}
			if (idx >= 2 && w[idx-2:idx] == "IN") || negatedAt(words, i) {
				negated = true
			} else {
				affirmed = true
			}
		}
	}
	return affirmed, negated
}

func negatedAt(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if negationWords[words[j]] {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
