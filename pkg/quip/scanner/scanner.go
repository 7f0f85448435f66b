// Package scanner splits quip source text into lexical units.
//
// The scanner is lazy and single-pass: each call to Next reads just enough
// input to produce one unit. It is not restartable; rescanning means creating a
// new Scanner. Parentheses are the only punctuation it knows about, so any run
// of non-space characters that is not a paren or a quoted span is a term.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	qerrors "github.com/sambeau/quip/pkg/quip/errors"
)

// Flag classifies a unit. A unit may carry several flags.
type Flag uint8

const (
	Term       Flag = 1 << iota // a bare word
	String                      // quoted or captured text, never literal-parsed
	BlockBegin                  // (
	Ending                      // ) or the end of a raw capture
	Argument                    // raw-capture text
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{Term, "TERM"},
	{String, "STRING"},
	{BlockBegin, "BLOCK_BEGIN"},
	{Ending, "ENDING"},
	{Argument, "ARGUMENT"},
}

// Has reports whether all of g is set in f.
func (f Flag) Has(g Flag) bool { return f&g == g }

func (f Flag) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Unit is one lexical unit with its position in the source.
type Unit struct {
	Text   string
	Flags  Flag
	Offset int // 0-based byte offset
	Line   int // 1-based
	Column int // 1-based, in runes
}

// Is reports whether the unit carries flag g.
func (u Unit) Is(g Flag) bool { return u.Flags.Has(g) }

// Scanner produces units from source text on demand.
type Scanner struct {
	input   string
	pos     int // offset of the next unread byte
	line    int
	column  int // column of the next unread rune
	depth   int // open '(' not yet closed
	capture bool
	pending []Unit // endings split off a raw capture
}

// New creates a scanner over input.
func New(input string) *Scanner {
	return &Scanner{input: input, line: 1, column: 1}
}

// Depth returns the number of blocks opened and not yet closed.
func (s *Scanner) Depth() int { return s.depth }

// Here returns an empty unit at the current position, used to locate errors
// at the end of input.
func (s *Scanner) Here() Unit { return s.unit("", 0) }

// Capture switches the scanner to raw-capture mode: the next call to Next
// returns everything left in the input as one Argument unit.
func (s *Scanner) Capture() { s.capture = true }

// Next returns the next unit. ok is false once the input is exhausted. Errors
// are *errors.QuipError with the failing span attached.
func (s *Scanner) Next() (unit Unit, ok bool, err error) {
	if s.capture {
		s.capture = false
		if u, found := s.readCapture(); found {
			return u, true, nil
		}
	}

	if len(s.pending) > 0 {
		u := s.pending[0]
		s.pending = s.pending[1:]
		return u, true, nil
	}

	s.skipWhitespace()
	if s.pos >= len(s.input) {
		if s.depth > 0 {
			return Unit{}, false, qerrors.New("SYNTAX-0003", map[string]any{"Depth": s.depth}).
				WithSpan("", s.pos, s.line, s.column)
		}
		return Unit{}, false, nil
	}

	switch ch := s.input[s.pos]; ch {
	case '(':
		u := s.unit("(", BlockBegin)
		s.advance()
		s.depth++
		return u, true, nil
	case ')':
		u := s.unit(")", Ending)
		if s.depth == 0 {
			return Unit{}, false, qerrors.New("SYNTAX-0001", nil).
				WithSpan(")", u.Offset, u.Line, u.Column)
		}
		s.advance()
		s.depth--
		return u, true, nil
	case '"', '\'':
		return s.readQuoted(ch)
	default:
		return s.readTerm(), true, nil
	}
}

// unit starts a unit at the current position.
func (s *Scanner) unit(text string, flags Flag) Unit {
	return Unit{Text: text, Flags: flags, Offset: s.pos, Line: s.line, Column: s.column}
}

// advance consumes one rune.
func (s *Scanner) advance() {
	if s.pos >= len(s.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += size
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
}

// advanceTo consumes input up to offset.
func (s *Scanner) advanceTo(offset int) {
	for s.pos < offset {
		s.advance()
	}
}

func (s *Scanner) skipWhitespace() {
	for s.pos < len(s.input) {
		r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		s.advance()
	}
}

// readTerm reads up to whitespace or a paren. The paren is left for the next
// call so the term is flushed before the block boundary.
func (s *Scanner) readTerm() Unit {
	u := s.unit("", Term)
	for s.pos < len(s.input) {
		r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
		if r == '(' || r == ')' || unicode.IsSpace(r) {
			break
		}
		s.advance()
	}
	u.Text = s.input[u.Offset:s.pos]
	return u
}

// readQuoted reads a span delimited by quote. Quotes do not nest and there are
// no escapes; whitespace inside is kept.
func (s *Scanner) readQuoted(quote byte) (Unit, bool, error) {
	u := s.unit("", Term|String)
	s.advance()
	end := strings.IndexByte(s.input[s.pos:], quote)
	if end < 0 {
		err := qerrors.New("SYNTAX-0002", map[string]any{"Quote": string(quote)}).
			WithSpan(s.input[u.Offset:], u.Offset, u.Line, u.Column)
		s.advanceTo(len(s.input))
		return Unit{}, false, err
	}
	u.Text = s.input[s.pos : s.pos+end]
	s.advanceTo(s.pos + end + 1)
	return u, true, nil
}

// readCapture takes the rest of the input as one unit. Leading and trailing
// whitespace is dropped, and trailing ')' that close blocks still open are
// split off as separate Ending units. An empty capture produces no unit.
func (s *Scanner) readCapture() (Unit, bool) {
	s.skipWhitespace()
	rest := s.input[s.pos:]

	text := strings.TrimRightFunc(rest, unicode.IsSpace)
	var closers []int
	for len(closers) < s.depth && strings.HasSuffix(text, ")") {
		text = text[:len(text)-1]
		closers = append(closers, s.pos+len(text))
		text = strings.TrimRightFunc(text, unicode.IsSpace)
	}

	u := s.unit(text, Term|String|Ending|Argument)
	for i := len(closers) - 1; i >= 0; i-- {
		s.advanceTo(closers[i])
		s.pending = append(s.pending, s.unit(")", Ending))
		s.depth--
	}
	s.advanceTo(len(s.input))

	return u, text != ""
}
