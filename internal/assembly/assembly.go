// Package assembly builds words and sentences from validated letters.
package assembly

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrNoText is returned when a command needs text but the buffer is empty.
var ErrNoText = errors.New("no text")

// Default control tokens and their on-screen indicators.
const (
	DefaultSpaceToken     = "ESPACO"
	DefaultEndToken       = "."
	DefaultBackspaceToken = "APAGAR"

	SpaceIndicator = "[ESPAÇO]"
	EndIndicator   = "[PONTO]"
)

// Text is the session's text buffer.
type Text struct {
	Formed  string `json:"formed_text"`
	Current string `json:"current_letter"`
}

// Tokens names the labels that act as commands instead of letters.
// An empty token disables that command.
type Tokens struct {
	Space     string `yaml:"space"`
	End       string `yaml:"end"`
	Backspace string `yaml:"backspace"`
}

// DefaultTokens returns the built-in control tokens.
func DefaultTokens() Tokens {
	return Tokens{
		Space:     DefaultSpaceToken,
		End:       DefaultEndToken,
		Backspace: DefaultBackspaceToken,
	}
}

// Kind classifies what Apply did.
type Kind int

const (
	KindNone Kind = iota
	KindLetter
	KindSpace
	KindEnd
	KindBackspace
)

// Result describes the effect of one Apply call.
type Result struct {
	Kind Kind
	// Utterance is the finished sentence when Kind is KindEnd.
	Utterance string
}

// Assembler applies validated labels to a Text.
type Assembler struct {
	tokens Tokens
}

// New creates an Assembler with the given tokens.
func New(tokens Tokens) *Assembler {
	return &Assembler{tokens: tokens}
}

// Tokens returns the configured control tokens.
func (a *Assembler) Tokens() Tokens {
	return a.tokens
}

// Apply appends label to t or executes it as a control token.
// An empty label leaves t unchanged.
func (a *Assembler) Apply(label string, t *Text) Result {
	if label == "" || t == nil {
		return Result{Kind: KindNone}
	}

	switch {
	case a.tokens.Space != "" && label == a.tokens.Space:
		t.Formed += " "
		t.Current = SpaceIndicator
		return Result{Kind: KindSpace}

	case a.tokens.End != "" && label == a.tokens.End:
		utterance := strings.TrimSpace(t.Formed)
		t.Formed = ""
		t.Current = EndIndicator
		return Result{Kind: KindEnd, Utterance: utterance}

	case a.tokens.Backspace != "" && label == a.tokens.Backspace:
		t.Formed = dropLastRune(t.Formed)
		t.Current = ""
		return Result{Kind: KindBackspace}
	}

	t.Formed += label
	t.Current = label
	return Result{Kind: KindLetter}
}

// ClearLast removes the last character of the formed text.
func ClearLast(t *Text) error {
	if t == nil || t.Formed == "" {
		return ErrNoText
	}
	t.Formed = dropLastRune(t.Formed)
	t.Current = ""
	return nil
}

// ClearAll empties the formed text and the current letter.
func ClearAll(t *Text) {
	if t == nil {
		return
	}
	t.Formed = ""
	t.Current = ""
}

func dropLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
