package object

import (
	"fmt"
	"strconv"
	"strings"
)

// Unbounded is the MaxArity of a selector that accepts any number of arguments.
const Unbounded = -1

// Env is the run environment handed to a selector when it is invoked. It is
// implemented by the engine's resolution context; selectors that need more
// (a logger, a nested run) type-assert to the concrete context they expect.
type Env interface {
	Subject() (Object, bool)
}

// Selector is a named, arity-bounded operation. Arity counts arguments only;
// the receiver is always operands[0] when the selector is invoked.
type Selector interface {
	Name() string
	MinArity() int
	MaxArity() int
	// LongRunning selectors are announced to the step driver before they are
	// invoked so a host can schedule them itself.
	LongRunning() bool
	// Verbatim selectors consume the rest of the source text as one literal
	// argument.
	Verbatim() bool
	Invoke(env Env, operands []Object) (Object, error)
}

// ParseArity converts an arity spec to bounds. Specs: "0", "2" (exact),
// "0-1" (range), "1+" (at least). An empty or malformed spec is permissive.
func ParseArity(spec string) (minArgs, maxArgs int) {
	spec = strings.TrimSpace(spec)

	if exact, err := strconv.Atoi(spec); err == nil {
		return exact, exact
	}

	if lo, hi, found := strings.Cut(spec, "-"); found {
		minVal, errMin := strconv.Atoi(lo)
		maxVal, errMax := strconv.Atoi(hi)
		if errMin == nil && errMax == nil {
			return minVal, maxVal
		}
	}

	if prefix, found := strings.CutSuffix(spec, "+"); found {
		if minVal, err := strconv.Atoi(prefix); err == nil {
			return minVal, Unbounded
		}
	}

	return 0, Unbounded
}

// FormatArity is the inverse of ParseArity.
func FormatArity(minArgs, maxArgs int) string {
	switch {
	case maxArgs == Unbounded:
		return fmt.Sprintf("%d+", minArgs)
	case minArgs == maxArgs:
		return strconv.Itoa(minArgs)
	default:
		return fmt.Sprintf("%d-%d", minArgs, maxArgs)
	}
}

// Accepts reports whether n arguments satisfy the selector's bounds.
func Accepts(sel Selector, n int) bool {
	if n < sel.MinArity() {
		return false
	}
	return sel.MaxArity() == Unbounded || n <= sel.MaxArity()
}

// Modified wraps a selector resolved from a name carrying modifier prefixes.
type Modified struct {
	Selector
	Reverse bool // '~': operands are passed in reverse order
	Negate  bool // '!': a Boolean result is inverted
}

// Modifier prefixes accepted in front of a selector name.
const (
	ReversePrefix = '~'
	NegatePrefix  = '!'
)

// StripModifiers removes leading '~' and '!' prefixes, each at most once.
func StripModifiers(name string) (base string, reverse, negate bool) {
	base = name
	for len(base) > 1 {
		switch {
		case base[0] == ReversePrefix && !reverse:
			reverse = true
		case base[0] == NegatePrefix && !negate:
			negate = true
		default:
			return base, reverse, negate
		}
		base = base[1:]
	}
	return base, reverse, negate
}

// Modify wraps sel when either modifier is set.
func Modify(sel Selector, reverse, negate bool) Selector {
	if !reverse && !negate {
		return sel
	}
	return &Modified{Selector: sel, Reverse: reverse, Negate: negate}
}

func (m *Modified) Name() string {
	prefix := ""
	if m.Reverse {
		prefix += string(ReversePrefix)
	}
	if m.Negate {
		prefix += string(NegatePrefix)
	}
	return prefix + m.Selector.Name()
}

func (m *Modified) Invoke(env Env, operands []Object) (Object, error) {
	if m.Reverse {
		reversed := make([]Object, len(operands))
		for i, o := range operands {
			reversed[len(operands)-1-i] = o
		}
		operands = reversed
	}
	result, err := m.Selector.Invoke(env, operands)
	if err != nil || !m.Negate {
		return result, err
	}
	b, ok := result.(*Boolean)
	if !ok {
		return nil, fmt.Errorf("cannot negate %s result of %s", result.Type(), m.Selector.Name())
	}
	return NativeBool(!b.Value), nil
}

type identity struct{}

// Identity is the arity-0 selector that returns its receiver. It closes a
// send that has a receiver but no selector, such as a bare literal.
var Identity Selector = identity{}

func (identity) Name() string      { return "self" }
func (identity) MinArity() int     { return 0 }
func (identity) MaxArity() int     { return 0 }
func (identity) LongRunning() bool { return false }
func (identity) Verbatim() bool    { return false }
func (identity) Invoke(_ Env, operands []Object) (Object, error) {
	return operands[0], nil
}
