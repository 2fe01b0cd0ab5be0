package classify

import (
	"regexp"
	"strings"

	"github.com/oncofollow/oncofollow/internal/domain/followup"
	"github.com/oncofollow/oncofollow/pkg/textnorm"
)

// Rule maps one label to the keyword substrings that select it.
type Rule struct {
	Label    string   `json:"label"`
	Keywords []string `json:"keywords"`
}

// Dictionary is an ordered rule table; the first matching rule wins.
type Dictionary struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// Taxonomy bundles the two classification dictionaries. Modalities are
// tried first, then Fallbacks, then Default.
type Taxonomy struct {
	Modalities Dictionary `json:"modalities"`
	Fallbacks  Dictionary `json:"fallbacks"`
	Default    string     `json:"default"`
	Cohorts    Dictionary `json:"cohorts"`
}

// CategoryKind tells how a stored category relates to the taxonomy.
type CategoryKind int

const (
	// CategoryEmpty is an unset, blank or pending category.
	CategoryEmpty CategoryKind = iota
	// CategoryRecognized is one of the taxonomy's modality labels.
	CategoryRecognized
	// CategoryLegacy is any other value, typically written by an older
	// rule set.
	CategoryLegacy
)

func (k CategoryKind) String() string {
	switch k {
	case CategoryEmpty:
		return "empty"
	case CategoryRecognized:
		return "recognized"
	default:
		return "legacy"
	}
}

var (
	cohortPrefix = regexp.MustCompile(`^\d+\s*=`)
	nonWord      = regexp.MustCompile(`[^A-Z0-9.]+`)
	strayDots    = regexp.MustCompile(`(^| )\.+|\.+( |$)`)
)

type compiledRule struct {
	label    string
	keywords []string
}

// matcher is a Taxonomy with folded keywords, ready for matching.
type matcher struct {
	modalities []compiledRule
	fallbacks  []compiledRule
	cohorts    []compiledRule
	fallback   string
	labels     map[string]bool
	cohortSet  map[string]bool
}

func compile(t Taxonomy) *matcher {
	m := &matcher{
		modalities: compileRules(t.Modalities.Rules),
		fallbacks:  compileRules(t.Fallbacks.Rules),
		cohorts:    compileRules(t.Cohorts.Rules),
		fallback:   t.Default,
		labels:     map[string]bool{t.Default: true},
		cohortSet:  make(map[string]bool),
	}
	for _, r := range t.Modalities.Rules {
		m.labels[r.Label] = true
	}
	for _, r := range t.Fallbacks.Rules {
		m.labels[r.Label] = true
	}
	for _, r := range t.Cohorts.Rules {
		m.cohortSet[r.Label] = true
	}
	return m
}

// compileRules folds keywords the same way as subject. A leading or
// trailing space is kept so a keyword can demand a word boundary.
func compileRules(rules []Rule) []compiledRule {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		c := compiledRule{label: r.Label}
		for _, kw := range r.Keywords {
			core := strings.TrimSpace(subject(kw))
			if core == "" {
				continue
			}
			if strings.HasPrefix(kw, " ") {
				core = " " + core
			}
			if strings.HasSuffix(kw, " ") {
				core += " "
			}
			c.keywords = append(c.keywords, core)
		}
		out = append(out, c)
	}
	return out
}

func firstMatch(rules []compiledRule, text string) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if containsKeyword(text, kw) {
				return r.label, true
			}
		}
	}
	return "", false
}

// containsKeyword reports whether kw occurs in text. A keyword ending in a
// digit, such as a diagnosis code, does not match when a letter follows it.
func containsKeyword(text, kw string) bool {
	last := kw[len(kw)-1]
	codeLike := last >= '0' && last <= '9'
	for from := 0; ; {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		end := from + i + len(kw)
		if !codeLike || end == len(text) || !isLetter(text[end]) {
			return true
		}
		from += i + 1
	}
}

func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }

// subject is the text keywords are matched against: folded, with
// punctuation turned into single spaces and padded at both ends. Dots
// survive only inside words so codes like C50.9 stay whole.
func subject(serviceName string) string {
	s := nonWord.ReplaceAllString(textnorm.Fold(serviceName), " ")
	s = strayDots.ReplaceAllString(s, " ")
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

func (m *matcher) modality(serviceName string) string {
	s := subject(serviceName)
	if label, ok := firstMatch(m.modalities, s); ok {
		return label
	}
	if label, ok := firstMatch(m.fallbacks, s); ok {
		return label
	}
	return m.fallback
}

func (m *matcher) cohort(serviceName string) (string, bool) {
	return firstMatch(m.cohorts, subject(serviceName))
}

func (m *matcher) kind(category *string) CategoryKind {
	if category == nil {
		return CategoryEmpty
	}
	c := strings.TrimSpace(*category)
	switch {
	case c == "" || strings.EqualFold(c, followup.PendingCategory):
		return CategoryEmpty
	case m.labels[c]:
		return CategoryRecognized
	default:
		return CategoryLegacy
	}
}

// looksLikeCohort reports whether a legacy category value is a cohort tag
// such as "3= CAC Cervix".
func (m *matcher) looksLikeCohort(category string) bool {
	c := strings.TrimSpace(category)
	return cohortPrefix.MatchString(c) || m.cohortSet[c]
}
