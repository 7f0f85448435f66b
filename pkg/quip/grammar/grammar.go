// Package grammar classifies lexical units against the open-send stack.
//
// The language has no operator precedence and almost no punctuation: what a
// word means depends on what the innermost open send is missing. Classify
// looks at that expectation, resolves the unit through a Resolver, and returns
// the transition the reducer should apply.
package grammar

import (
	"strings"
	"unicode"
	"unicode/utf8"

	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
	"github.com/sambeau/quip/pkg/quip/send"
)

// Sigils that prefix a term.
const (
	ObjectSigil  = '@' // @name: a bound object, @Type: the object of that type
	SubjectSigil = '$' // $: the run's subject, $name: one of its members or selectors
)

// Resolver answers the name lookups classification needs.
type Resolver interface {
	ResolveObjectByName(name string) (object.Object, bool)
	ResolveObjectByType(typeName string) (object.Object, bool)
	ObjectNames() []string
	ResolveType(name string) (*object.TypeRef, bool)
	// ResolveLiteral never fails: quoted text stays a String, anything else
	// that does not parse as a structured literal is a String too.
	ResolveLiteral(text string, quoted bool) object.Object
	ResolveSelector(name string, receiver object.Object) (object.Selector, bool)
	SelectorNames(receiver object.Object) []string
	ResolveMember(subject object.Object, name string) (object.Object, bool)
	Subject() (object.Object, bool)
}

// Classifier turns units into transitions. Peek returns the most recent
// result of the run, the receiver for chained selectors.
type Classifier struct {
	resolver Resolver
	peek     func() (object.Object, bool)
}

// New creates a classifier.
func New(r Resolver, peek func() (object.Object, bool)) *Classifier {
	return &Classifier{resolver: r, peek: peek}
}

// Classify decides what u does to st. Errors carry u's span.
func (c *Classifier) Classify(u scanner.Unit, st *send.Stack) (send.Transition, error) {
	t, err := c.classify(u, st)
	if err != nil {
		if qe, ok := err.(*qerrors.QuipError); ok && !qe.Located() {
			return t, qe.WithSpan(u.Text, u.Offset, u.Line, u.Column)
		}
		return t, err
	}
	t.Unit = u
	return t, nil
}

func (c *Classifier) classify(u scanner.Unit, st *send.Stack) (send.Transition, error) {
	exp := st.Expectation()
	top := st.Top()
	var t send.Transition

	switch {
	case u.Is(scanner.Argument):
		if exp != send.ExpectArgument || !top.Selector.Verbatim() {
			return t, qerrors.New("SYNTAX-0004", map[string]any{"Token": u.Text})
		}
		t.Steps = append(t.Steps, send.Step{Op: send.OpArgument, Operand: send.Val(&object.String{Value: u.Text})})
		if limit := top.Selector.MaxArity(); limit == object.Unbounded || len(top.Args)+1 < limit {
			t.Steps = append(t.Steps, send.Step{Op: send.OpEnd})
		}
		return t, nil

	case u.Is(scanner.BlockBegin):
		if exp == send.ExpectSelector {
			return t, qerrors.New("SYNTAX-0005", nil)
		}
		t.Steps = append(t.Steps, send.Step{Op: send.OpOpen})
		return t, nil

	case u.Is(scanner.Ending):
		t.Steps = append(t.Steps, send.Step{Op: send.OpClose})
		return t, nil

	case u.Is(scanner.String):
		return c.value(t, exp, u.Text, send.Val(c.resolver.ResolveLiteral(u.Text, true)))
	}

	text := u.Text
	switch {
	case len(text) > 1 && text[0] == ObjectSigil:
		return c.objectRef(t, exp, text)
	case text != "" && text[0] == SubjectSigil:
		return c.subjectRef(t, exp, text)
	}

	if exp == send.ExpectSelector {
		return c.selector(t, top, text)
	}

	if ref, ok := c.resolver.ResolveType(text); ok {
		if exp == send.ExpectArgument {
			return t, qerrors.New("RESOLVE-0005", map[string]any{"Type": text, "Role": "an argument"})
		}
		return c.value(t, exp, text, send.Val(ref))
	}

	// A word after a value in the same scope is tried as a selector on that
	// value before it is taken as a literal.
	if exp == send.ExpectNothing && st.Produced() > 0 {
		if prev, ok := c.peek(); ok {
			if sel, ok := c.lookup(text, prev); ok {
				t.Steps = append(t.Steps, send.Step{Op: send.OpChain, Selector: sel})
				t.Capture = sel.Verbatim()
				return t, nil
			}
		}
	}

	return c.value(t, exp, text, send.Val(c.resolver.ResolveLiteral(text, false)))
}

// value places an operand according to the expectation.
func (c *Classifier) value(t send.Transition, exp send.Expectation, text string, o send.Operand) (send.Transition, error) {
	switch exp {
	case send.ExpectNothing:
		t.Steps = append(t.Steps, send.Step{Op: send.OpStart, Operand: o})
	case send.ExpectArgument:
		t.Steps = append(t.Steps, send.Step{Op: send.OpArgument, Operand: o})
	default:
		return t, qerrors.New("SYNTAX-0007", map[string]any{"Type": "this value", "Token": text})
	}
	return t, nil
}

// selector resolves text against the receiver of the innermost send.
func (c *Classifier) selector(t send.Transition, top *send.Send, text string) (send.Transition, error) {
	recv, err := c.receiver(top.Receiver)
	if err != nil {
		return t, err
	}
	if sel, ok := c.lookup(text, recv); ok {
		t.Steps = append(t.Steps, send.Step{Op: send.OpSelector, Selector: sel})
		t.Capture = sel.Verbatim()
		return t, nil
	}

	if _, ok := c.resolver.ResolveType(text); ok {
		return t, qerrors.New("RESOLVE-0005", map[string]any{"Type": text, "Role": "a selector"})
	}
	if lit := c.resolver.ResolveLiteral(text, false); lit.Type() != object.STRING_OBJ {
		return t, qerrors.New("SYNTAX-0007", map[string]any{"Type": string(recv.Type()), "Token": text})
	}
	return t, qerrors.NewUnknownSelector(text, string(recv.Type()), c.resolver.SelectorNames(recv))
}

// lookup resolves a selector name, first as written and then without its
// modifier prefixes.
func (c *Classifier) lookup(name string, recv object.Object) (object.Selector, bool) {
	if sel, ok := c.resolver.ResolveSelector(name, recv); ok {
		return sel, true
	}
	base, reverse, negate := object.StripModifiers(name)
	if base == name {
		return nil, false
	}
	sel, ok := c.resolver.ResolveSelector(base, recv)
	if !ok {
		return nil, false
	}
	return object.Modify(sel, reverse, negate), true
}

// receiver returns the value a selector will be resolved against.
func (c *Classifier) receiver(o send.Operand) (object.Object, error) {
	switch o.Kind {
	case send.Value:
		return o.Value, nil
	case send.Subject:
		return c.subject("$")
	case send.Member:
		subj, err := c.subject("$" + o.Name)
		if err != nil {
			return nil, err
		}
		if v, ok := c.resolver.ResolveMember(subj, o.Name); ok {
			return v, nil
		}
		return nil, qerrors.New("RESOLVE-0001", map[string]any{"Name": "$" + o.Name})
	}
	if v, ok := c.peek(); ok {
		return v, nil
	}
	return nil, qerrors.New("INVOKE-0002", nil)
}

func (c *Classifier) subject(token string) (object.Object, error) {
	subj, ok := c.resolver.Subject()
	if !ok {
		return nil, qerrors.New("RESOLVE-0004", map[string]any{"Token": token})
	}
	return subj, nil
}

// objectRef resolves @name, or @Type when the name is capitalised.
func (c *Classifier) objectRef(t send.Transition, exp send.Expectation, text string) (send.Transition, error) {
	name := text[1:]
	var (
		obj object.Object
		ok  bool
	)
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(r) {
		if obj, ok = c.resolver.ResolveObjectByType(name); !ok {
			return t, qerrors.New("RESOLVE-0002", map[string]any{"Type": name})
		}
	} else if obj, ok = c.resolver.ResolveObjectByName(name); !ok {
		return t, qerrors.NewUnknownObject(name, c.resolver.ObjectNames())
	}
	return c.value(t, exp, text, send.Val(obj))
}

// subjectRef handles $ and $name. A name that is not a stored member of the
// subject is a selector on it, which opens an implicit nested send.
func (c *Classifier) subjectRef(t send.Transition, exp send.Expectation, text string) (send.Transition, error) {
	subj, err := c.subject(text)
	if err != nil {
		return t, err
	}
	name := strings.TrimPrefix(text, string(SubjectSigil))
	if name == "" {
		return c.value(t, exp, text, send.SubjectRef())
	}
	if _, ok := c.resolver.ResolveMember(subj, name); ok {
		return c.value(t, exp, text, send.MemberRef(name))
	}
	if exp == send.ExpectSelector {
		return t, qerrors.New("SYNTAX-0007", map[string]any{"Type": "this value", "Token": text})
	}
	sel, ok := c.lookup(name, subj)
	if !ok {
		return t, qerrors.NewUnknownSelector(name, string(subj.Type()), c.resolver.SelectorNames(subj))
	}
	t.Steps = append(t.Steps, send.Step{Op: send.OpNest, Selector: sel})
	t.Capture = sel.Verbatim()
	return t, nil
}
