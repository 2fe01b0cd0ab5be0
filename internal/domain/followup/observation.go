package followup

import "strings"

// Observation tags. An observation is a plain note followed by zero or more
// "| TAG: value" pairs; the note is whatever precedes the first "|".
const (
	TagBarrera         = "BARRERA"
	TagTipo            = "TIPO"
	TagResp            = "RESP"
	TagDxSugerido      = "DX SUGERIDO"
	TagCohorteAnterior = "COHORTE ANTERIOR"
)

// Tag is one KEY: value pair of an observation.
type Tag struct {
	Key   string
	Value string
}

// Note returns the plain-note segment of obs.
func Note(obs string) string {
	if i := strings.Index(obs, "|"); i >= 0 {
		return strings.TrimSpace(obs[:i])
	}
	return strings.TrimSpace(obs)
}

// Tags returns the tag pairs of obs in order. Segments without a colon are
// ignored.
func Tags(obs string) []Tag {
	parts := strings.Split(obs, "|")
	var tags []Tag
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		tags = append(tags, Tag{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return tags
}

// HasTag reports whether obs already carries key with exactly value.
func HasTag(obs, key, value string) bool {
	value = tagValue(value)
	for _, t := range Tags(obs) {
		if t.Key == key && t.Value == value {
			return true
		}
	}
	return false
}

// AppendTag adds "| key: value" to obs unless the same pair is present or
// value is blank. It reports whether obs changed.
func AppendTag(obs, key, value string) (string, bool) {
	value = tagValue(value)
	if value == "" || HasTag(obs, key, value) {
		return obs, false
	}
	return strings.TrimSpace(obs + " | " + key + ": " + value), true
}

// BuildObservation starts from a plain note and appends tags in order,
// skipping blank values.
func BuildObservation(note string, tags ...Tag) string {
	obs := strings.TrimSpace(strings.ReplaceAll(note, "|", "/"))
	for _, t := range tags {
		obs, _ = AppendTag(obs, t.Key, t.Value)
	}
	return obs
}

func tagValue(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "|", "/"))
}
