// Package send holds the partially built expression graph: sends, their
// operands, and the open-send stack the reducer mutates one transition at a
// time.
package send

import (
	"fmt"
	"strings"

	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
)

// OperandKind says how an operand gets its value at evaluation time.
type OperandKind uint8

const (
	None        OperandKind = iota
	Value                   // fixed when the unit was classified
	Placeholder             // the result of a nested send, popped from the result stack
	Subject                 // the run's subject
	Member                  // a stored member of the run's subject
)

func (k OperandKind) String() string {
	switch k {
	case Value:
		return "value"
	case Placeholder:
		return "placeholder"
	case Subject:
		return "subject"
	case Member:
		return "member"
	default:
		return "none"
	}
}

// Operand is a receiver or argument slot.
type Operand struct {
	Kind  OperandKind
	Value object.Object // Value
	Name  string        // Member
	ref   *ref          // Placeholder
}

// ref is the single-use state behind a placeholder.
type ref struct {
	consumed bool
}

// Val returns a fixed-value operand.
func Val(v object.Object) Operand { return Operand{Kind: Value, Value: v} }

// SubjectRef returns an operand bound to the run's subject.
func SubjectRef() Operand { return Operand{Kind: Subject} }

// MemberRef returns an operand bound to a stored member of the subject.
func MemberRef(name string) Operand { return Operand{Kind: Member, Name: name} }

// NewPlaceholder returns a fresh forward reference.
func NewPlaceholder() Operand { return Operand{Kind: Placeholder, ref: &ref{}} }

// Consume marks a placeholder as resolved. It reports false if it already was.
func (o Operand) Consume() bool {
	if o.ref == nil || o.ref.consumed {
		return false
	}
	o.ref.consumed = true
	return true
}

func (o Operand) String() string {
	switch o.Kind {
	case Value:
		return o.Value.Inspect()
	case Placeholder:
		return "<nested>"
	case Subject:
		return "$"
	case Member:
		return "$" + o.Name
	default:
		return "_"
	}
}

// Send is one operation under construction: a receiver, a selector and its
// arguments.
type Send struct {
	Receiver Operand
	Selector object.Selector
	Args     []Operand
	Ended    bool
	Chained  bool // receiver is the previous value in scope
	Implicit bool // opened by a subject selector reference
	At       scanner.Unit
	Capture  scanner.Unit // raw-capture unit of the last argument, if any

	open int // block placeholders whose ')' has not been seen
}

// Complete reports whether the send can be evaluated.
func (s *Send) Complete() bool {
	if s.Receiver.Kind == None || s.Selector == nil || s.open > 0 {
		return false
	}
	n := len(s.Args)
	if limit := s.Selector.MaxArity(); limit != object.Unbounded && n >= limit {
		return true
	}
	return s.Ended && n >= s.Selector.MinArity()
}

// Full reports whether no further argument fits.
func (s *Send) Full() bool {
	limit := s.Selector.MaxArity()
	return limit != object.Unbounded && len(s.Args) >= limit
}

// Operands returns receiver and arguments in source order.
func (s *Send) Operands() []Operand {
	ops := make([]Operand, 0, len(s.Args)+1)
	ops = append(ops, s.Receiver)
	return append(ops, s.Args...)
}

func (s *Send) String() string {
	var sb strings.Builder
	sb.WriteString(s.Receiver.String())
	if s.Selector != nil {
		sb.WriteByte(' ')
		sb.WriteString(s.Selector.Name())
	}
	for _, a := range s.Args {
		sb.WriteByte(' ')
		sb.WriteString(a.String())
	}
	return sb.String()
}

// GoString is used by %#v in test failures.
func (s *Send) GoString() string {
	return fmt.Sprintf("send{%s ended=%v}", s, s.Ended)
}
