// Package correct fixes misspelled words in fingerspelled text against a
// known vocabulary.
//
// A word is replaced by the vocabulary entry with the highest Jaro-Winkler
// similarity. Entries that share a Double Metaphone code with the word are
// accepted at a lower threshold than purely textual matches.
package correct

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.75
	defaultFuzzyThreshold    = 0.88
	defaultMinWordLength     = 3
)

// DefaultVocabulary is a small set of everyday Portuguese words.
var DefaultVocabulary = []string{
	"OLA", "OI", "TCHAU", "TUDO", "BEM", "BOM", "DIA", "TARDE", "NOITE",
	"OBRIGADO", "OBRIGADA", "POR", "FAVOR", "SIM", "NAO", "AJUDA", "AGUA",
	"CASA", "NOME", "MEU", "EU", "VOCE", "AMIGO", "FAMILIA", "ESCOLA",
	"TRABALHO", "COMER", "BEBER", "QUERO", "PRECISO", "LIBRAS",
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum similarity for phonetic candidates.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum similarity when no phonetic candidate
// exists.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.fuzzyThreshold = threshold
	}
}

// WithMinWordLength leaves shorter words untouched.
func WithMinWordLength(n int) Option {
	return func(c *Corrector) {
		c.minWordLength = n
	}
}

type entry struct {
	word  string
	codes map[string]struct{}
}

// Corrector is read-only after construction and safe for concurrent use.
type Corrector struct {
	entries           []entry
	known             map[string]struct{}
	phoneticThreshold float64
	fuzzyThreshold    float64
	minWordLength     int
}

// New creates a Corrector for the given vocabulary. Words are compared
// case-insensitively and replacements are returned in upper case.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		known:             make(map[string]struct{}, len(vocabulary)),
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
		minWordLength:     defaultMinWordLength,
	}
	for _, o := range opts {
		o(c)
	}

	for _, w := range vocabulary {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := c.known[w]; dup {
			continue
		}
		c.known[w] = struct{}{}
		c.entries = append(c.entries, entry{word: w, codes: codes(w)})
	}
	return c
}

// Size returns the number of vocabulary entries.
func (c *Corrector) Size() int {
	return len(c.entries)
}

// Word returns the best vocabulary match for word, or word unchanged.
func (c *Corrector) Word(word string) (string, bool) {
	upper := strings.ToUpper(word)
	if len([]rune(upper)) < c.minWordLength || len(c.entries) == 0 {
		return word, false
	}
	if _, ok := c.known[upper]; ok {
		return upper, false
	}

	inputCodes := codes(upper)

	var best string
	var bestScore float64
	bestPhonetic := false

	for _, e := range c.entries {
		score := matchr.JaroWinkler(upper, e.word, false)
		phonetic := overlap(inputCodes, e.codes)

		switch {
		case phonetic && score >= c.phoneticThreshold:
			if !bestPhonetic || score > bestScore {
				best, bestScore, bestPhonetic = e.word, score, true
			}
		case !phonetic && !bestPhonetic && score >= c.fuzzyThreshold && score > bestScore:
			best, bestScore = e.word, score
		}
	}

	if best == "" {
		return word, false
	}
	return best, true
}

// Text corrects each space-separated word, keeping the original spacing.
func (c *Corrector) Text(text string) string {
	if text == "" {
		return text
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		if fixed, ok := c.Word(w); ok {
			words[i] = fixed
		}
	}
	return strings.Join(words, " ")
}

func codes(word string) map[string]struct{} {
	out := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(strings.ToLower(word))
	if p != "" {
		out[p] = struct{}{}
	}
	if s != "" {
		out[s] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
