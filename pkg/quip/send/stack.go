package send

import (
	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
)

// Expectation is what the innermost open send is missing.
type Expectation uint8

const (
	ExpectNothing  Expectation = iota // no open send in the current scope
	ExpectSelector                    // receiver set, selector missing
	ExpectArgument                    // selector set, more arguments accepted
)

func (e Expectation) String() string {
	switch e {
	case ExpectSelector:
		return "SELECTOR"
	case ExpectArgument:
		return "ARGUMENT"
	default:
		return "NOTHING"
	}
}

// scope is a block, or the top level. Sends at or above base belong to it;
// the one at base is scope-level and the rest are nested in placeholders of
// the send below them.
type scope struct {
	base   int
	owner  *Send           // send holding this block's placeholder, nil for a scope-level block
	values int             // scope-level values produced and not yet chained on
	last   object.Selector // selector of the last scope-level value
	full   bool            // the last scope-level value came from a send that took its last argument
}

// Stack is the open-send stack, innermost send last. A Stack belongs to a
// single run and is abandoned with it.
type Stack struct {
	sends  []*Send
	scopes []*scope
}

// NewStack returns an empty stack at top level.
func NewStack() *Stack {
	return &Stack{scopes: []*scope{{}}}
}

func (st *Stack) scope() *scope { return st.scopes[len(st.scopes)-1] }

// Len returns the number of open sends.
func (st *Stack) Len() int { return len(st.sends) }

// Depth returns the number of open blocks.
func (st *Stack) Depth() int { return len(st.scopes) - 1 }

// Top returns the innermost open send of the current scope, or nil.
func (st *Stack) Top() *Send {
	if len(st.sends) == st.scope().base {
		return nil
	}
	return st.sends[len(st.sends)-1]
}

// Produced returns how many values the current scope holds that a selector
// could chain on.
func (st *Stack) Produced() int { return st.scope().values }

// Expectation derives what the next unit should supply.
func (st *Stack) Expectation() Expectation {
	top := st.Top()
	switch {
	case top == nil:
		return ExpectNothing
	case top.Selector == nil:
		return ExpectSelector
	default:
		return ExpectArgument
	}
}

// Apply performs every step of t and returns the sends it completed, innermost
// first, so each nested result is available before the send that needs it.
func (st *Stack) Apply(t Transition) ([]*Send, error) {
	var done []*Send
	for _, step := range t.Steps {
		closed, err := st.apply(step, t.Unit)
		done = append(done, closed...)
		if err != nil {
			return done, err
		}
		done = append(done, st.detach()...)
	}
	return done, nil
}

// apply performs one step. Only OpClose returns sends, the ones it completed
// inside the block before closing it.
func (st *Stack) apply(step Step, at scanner.Unit) ([]*Send, error) {
	sc := st.scope()
	top := st.Top()

	switch step.Op {
	case OpStart:
		if err := st.independent(at, true); err != nil {
			return nil, err
		}
		st.push(&Send{Receiver: step.Operand, At: at})

	case OpSelector:
		if top == nil || top.Selector != nil {
			return nil, st.misplaced(at)
		}
		top.Selector = step.Selector
		top.At = at

	case OpArgument:
		if top == nil || top.Selector == nil || top.Full() {
			return nil, st.misplaced(at)
		}
		top.Args = append(top.Args, step.Operand)
		if at.Is(scanner.Argument) {
			top.Capture = at
		}

	case OpChain:
		if sc.values == 0 {
			return nil, st.misplaced(at)
		}
		sc.values--
		st.push(&Send{Receiver: NewPlaceholder(), Selector: step.Selector, Chained: true, At: at})

	case OpOpen:
		next := &scope{base: len(st.sends)}
		if top != nil {
			if top.Selector == nil {
				return nil, qerrors.New("SYNTAX-0005", nil)
			}
			top.Args = append(top.Args, NewPlaceholder())
			top.open++
			next.owner = top
		} else if err := st.independent(at, false); err != nil {
			return nil, err
		}
		st.scopes = append(st.scopes, next)

	case OpNest:
		if top != nil {
			if top.Selector == nil {
				return nil, st.misplaced(at)
			}
			top.Args = append(top.Args, NewPlaceholder())
		} else if err := st.independent(at, true); err != nil {
			return nil, err
		}
		st.push(&Send{Receiver: SubjectRef(), Selector: step.Selector, Implicit: true, At: at})

	case OpEnd:
		if top == nil {
			return nil, st.misplaced(at)
		}
		return nil, end(top)

	case OpClose:
		if len(st.scopes) == 1 {
			return nil, qerrors.New("SYNTAX-0001", nil)
		}
		if err := st.endScope(); err != nil {
			return nil, err
		}
		done := st.detach()
		if len(st.sends) > sc.base {
			return done, st.misplaced(at)
		}
		if sc.values == 0 {
			return done, qerrors.New("SYNTAX-0006", nil)
		}
		st.scopes = st.scopes[:len(st.scopes)-1]
		if sc.owner != nil {
			sc.owner.open--
		} else {
			parent := st.scope()
			parent.values++
			parent.last = sc.last
			parent.full = false
		}
		return done, nil

	case OpFinish:
		if len(st.scopes) > 1 {
			return nil, qerrors.New("SYNTAX-0003", map[string]any{"Depth": len(st.scopes) - 1})
		}
		return nil, st.endScope()
	}
	return nil, nil
}

func (st *Stack) push(s *Send) {
	st.sends = append(st.sends, s)
}

// independent rejects a second value in a block. At top level independent
// values are the run's outputs, but a bare value right after a send that took
// its last argument is one argument too many.
func (st *Stack) independent(at scanner.Unit, bare bool) error {
	sc := st.scope()
	if sc.values == 0 {
		return nil
	}
	if len(st.scopes) == 1 && !(bare && sc.full) {
		return nil
	}
	last := sc.last
	if last == nil {
		last = object.Identity
	}
	return qerrors.New("ARITY-0002", map[string]any{
		"Selector": last.Name(),
		"Token":    at.Text,
	})
}

// endScope ends every send in the current scope, innermost first. A send
// that only has a receiver is closed with the identity selector.
func (st *Stack) endScope() error {
	base := st.scope().base
	for i := len(st.sends) - 1; i >= base; i-- {
		s := st.sends[i]
		if s.Selector == nil {
			s.Selector = object.Identity
		}
		if err := end(s); err != nil {
			return err
		}
	}
	return nil
}

func end(s *Send) error {
	if s.Selector == nil {
		return qerrors.New("SYNTAX-0007", map[string]any{"Type": "value", "Token": s.Receiver.String()})
	}
	s.Ended = true
	if len(s.Args) < s.Selector.MinArity() {
		return qerrors.New("ARITY-0001", map[string]any{
			"Selector": s.Selector.Name(),
			"Want":     object.FormatArity(s.Selector.MinArity(), s.Selector.MaxArity()),
			"Got":      len(s.Args),
		})
	}
	return nil
}

func (st *Stack) misplaced(at scanner.Unit) error {
	return qerrors.New("SYNTAX-0007", map[string]any{"Type": st.Expectation().String(), "Token": at.Text})
}

// detach removes the run of complete sends at the top of the current scope.
func (st *Stack) detach() []*Send {
	sc := st.scope()
	var done []*Send
	for len(st.sends) > sc.base {
		top := st.sends[len(st.sends)-1]
		if !top.Complete() {
			break
		}
		st.sends = st.sends[:len(st.sends)-1]
		done = append(done, top)
		if len(st.sends) == sc.base {
			sc.values++
			sc.last = top.Selector
			sc.full = top.Full() && !top.Ended
		}
	}
	return done
}
