// Package errors provides structured error types for the quip expression engine.
//
// Every failure raised while scanning, classifying, reducing or evaluating an
// expression is a QuipError. Errors are created from a catalog of codes whose
// message templates are rendered with the data supplied at the failure site,
// so hosts can match on Class or Code and still show a readable message.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassSyntax     ErrorClass = "syntax"     // Unbalanced blocks, quoting, misplaced tokens
	ClassResolution ErrorClass = "resolution" // Unknown object, type or selector name
	ClassArity      ErrorClass = "arity"      // Too few or too many arguments for a selector
	ClassInvocation ErrorClass = "invocation" // The resolved operation failed
	ClassState      ErrorClass = "state"      // Misuse of a runner
)

// Class sentinels for errors.Is checks, e.g. errors.Is(err, qerrors.Syntax).
var (
	Syntax     = &QuipError{Class: ClassSyntax}
	Resolution = &QuipError{Class: ClassResolution}
	Arity      = &QuipError{Class: ClassArity}
	Invocation = &QuipError{Class: ClassInvocation}
	State      = &QuipError{Class: ClassState}
)

// QuipError is the single error type reported by the engine.
type QuipError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	Token   string         `json:"token,omitempty"`  // Source text of the failing unit
	Offset  int            `json:"offset"`           // 0-based byte offset of the failing unit
	Line    int            `json:"line"`             // 1-based line (0 if unknown)
	Column  int            `json:"column"`           // 1-based column (0 if unknown)
	Data    map[string]any `json:"data,omitempty"`   // Template variables
	Err     error          `json:"-"`                // Wrapped cause, if any

	origin *QuipError // error this one was rebased from
}

// Error implements the error interface.
func (e *QuipError) Error() string {
	return e.String()
}

// String returns a one-line representation with location prefix and hints.
func (e *QuipError) String() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	}
	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}
	return sb.String()
}

// PrettyString returns a multi-line form for terminal display.
func (e *QuipError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassSyntax:
		sb.WriteString("Syntax error")
	case ClassResolution:
		sb.WriteString("Resolution error")
	case ClassArity:
		sb.WriteString("Arity error")
	case ClassState:
		sb.WriteString("State error")
	default:
		sb.WriteString("Evaluation error")
	}

	if e.Line > 0 {
		fmt.Fprintf(&sb, ": line %d, column %d", e.Line, e.Column)
	}
	if e.Token != "" {
		fmt.Fprintf(&sb, " at '%s'", e.Token)
	}
	sb.WriteString("\n  ")
	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *QuipError) Unwrap() error {
	return e.Err
}

// Is matches class sentinels: a sentinel with only Class set matches any error of
// that class; otherwise codes must agree.
func (e *QuipError) Is(target error) bool {
	t, ok := target.(*QuipError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Class == e.Class
	}
	return t.Code == e.Code
}

// ToJSON returns the error as JSON bytes.
func (e *QuipError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithSpan returns a copy of the error located at the given source span.
func (e *QuipError) WithSpan(token string, offset, line, column int) *QuipError {
	c := *e
	c.Token = token
	c.Offset = offset
	c.Line = line
	c.Column = column
	return &c
}

// Rebase returns a copy whose position, relative to a source embedded at the
// given offset, line and column, is made relative to the enclosing source.
func (e *QuipError) Rebase(offset, line, column int) *QuipError {
	c := *e
	c.origin = e.Origin()
	c.Offset += offset
	if e.Line == 1 {
		c.Column += column - 1
	}
	c.Line += line - 1
	return &c
}

// Origin returns the error e was rebased from, or e itself.
func (e *QuipError) Origin() *QuipError {
	if e.origin != nil {
		return e.origin
	}
	return e
}

// Located reports whether a source position has been attached.
func (e *QuipError) Located() bool {
	return e.Line > 0
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string
	Hints    []string
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// Syntax errors (SYNTAX-0xxx)
	"SYNTAX-0001": {
		Class:    ClassSyntax,
		Template: "unbalanced ')': no block is open",
	},
	"SYNTAX-0002": {
		Class:    ClassSyntax,
		Template: "unterminated string starting with {{.Quote}}",
	},
	"SYNTAX-0003": {
		Class:    ClassSyntax,
		Template: "end of input with {{.Depth}} unclosed '('",
		Hints:    []string{"add {{.Depth}} closing ')'"},
	},
	"SYNTAX-0004": {
		Class:    ClassSyntax,
		Template: "verbatim text '{{.Token}}' has no selector to consume it",
	},
	"SYNTAX-0005": {
		Class:    ClassSyntax,
		Template: "expected a selector, got '('",
	},
	"SYNTAX-0006": {
		Class:    ClassSyntax,
		Template: "empty block '()'",
	},
	"SYNTAX-0007": {
		Class:    ClassSyntax,
		Template: "expected a selector for {{.Type}}, got a value '{{.Token}}'",
	},

	// Resolution errors (RESOLVE-0xxx)
	"RESOLVE-0001": {
		Class:    ClassResolution,
		Template: "unknown object '{{.Name}}'",
	},
	"RESOLVE-0002": {
		Class:    ClassResolution,
		Template: "no object of type {{.Type}}",
	},
	"RESOLVE-0003": {
		Class:    ClassResolution,
		Template: "unknown selector '{{.Selector}}' for {{.Type}}",
	},
	"RESOLVE-0004": {
		Class:    ClassResolution,
		Template: "'{{.Token}}' refers to the subject, but this run has none",
	},
	"RESOLVE-0005": {
		Class:    ClassResolution,
		Template: "type {{.Type}} cannot be used as {{.Role}}",
	},

	// Arity errors (ARITY-0xxx)
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "`{{.Selector}}` expects {{.Want}} argument(s), got {{.Got}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "`{{.Selector}}` takes no more arguments; extra value '{{.Token}}'",
		Hints:    []string{"wrap the value in its own block to make it a separate result"},
	},

	// Invocation errors (INVOKE-0xxx)
	"INVOKE-0001": {
		Class:    ClassInvocation,
		Template: "`{{.Selector}}` failed: {{.GoError}}",
	},
	"INVOKE-0002": {
		Class:    ClassInvocation,
		Template: "no result available for a nested expression",
	},
	"INVOKE-0003": {
		Class:    ClassInvocation,
		Template: "nested expression result already consumed",
	},

	// State errors (STATE-0xxx)
	"STATE-0001": {
		Class:    ClassState,
		Template: "runner has already failed: {{.GoError}}",
	},
	"STATE-0002": {
		Class:    ClassState,
		Template: "no long-running call is waiting for a result",
	},
}

// New creates a QuipError from the catalog.
// If the code is unknown, a generic invocation error is returned.
func New(code string, data map[string]any) *QuipError {
	def, ok := ErrorCatalog[code]
	if !ok {
		return &QuipError{
			Class:   ClassInvocation,
			Code:    code,
			Message: fmt.Sprintf("unknown error code %s", code),
			Data:    data,
		}
	}

	var hints []string
	for _, hintTmpl := range def.Hints {
		if rendered := renderTemplate(hintTmpl, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &QuipError{
		Class:   def.Class,
		Code:    code,
		Message: renderTemplate(def.Template, data),
		Hints:   hints,
		Data:    data,
	}
}

// Wrap creates an INVOKE-0001 error for a failed selector, keeping the cause.
// A QuipError cause is returned unchanged so nested runs report their own failure.
func Wrap(selector string, err error) *QuipError {
	if qe, ok := err.(*QuipError); ok {
		return qe
	}
	e := New("INVOKE-0001", map[string]any{"Selector": selector, "GoError": err.Error()})
	e.Err = err
	return e
}

// NewSimple creates an error outside the catalog.
func NewSimple(class ErrorClass, message string) *QuipError {
	return &QuipError{Class: class, Message: message}
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return buf.String()
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// threshold is the largest edit distance still worth suggesting.
// Short words (1-3): 1 edit, medium (4-6): 2, longer: 3.
func threshold(input string) int {
	switch n := len(input); {
	case n >= 7:
		return 3
	case n >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch returns the candidate closest to input, or "" when nothing is
// near enough. Comparison ignores case; exact matches are not suggested.
func FindClosestMatch(input string, candidates []string) string {
	matches := FindTopMatches(input, candidates, 1)
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// FindTopMatches returns up to n candidates within the edit-distance threshold,
// closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if input == "" || len(candidates) == 0 || n <= 0 {
		return nil
	}

	type match struct {
		value    string
		distance int
	}

	lower := strings.ToLower(input)
	limit := threshold(input)
	var matches []match
	for _, c := range candidates {
		d := levenshtein(lower, strings.ToLower(c))
		if d > 0 && d <= limit {
			matches = append(matches, match{c, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// NewUnknownSelector creates a RESOLVE-0003 error with a "Did you mean" hint.
func NewUnknownSelector(selector, typeName string, available []string) *QuipError {
	err := New("RESOLVE-0003", map[string]any{"Selector": selector, "Type": typeName})
	if suggestion := FindClosestMatch(selector, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// NewUnknownObject creates a RESOLVE-0001 error with a "Did you mean" hint.
func NewUnknownObject(name string, available []string) *QuipError {
	err := New("RESOLVE-0001", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, available); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `@"+suggestion+"`?")
	}
	return err
}
