package send

import (
	"strings"

	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
)

// Op is one structural change to the open-send stack.
type Op uint8

const (
	OpStart    Op = iota + 1 // new send in the current scope with Operand as receiver
	OpSelector               // attach Selector to the innermost send
	OpArgument               // append Operand to the innermost send
	OpChain                  // new send whose receiver is the previous value in scope
	OpOpen                   // '(' : a placeholder in the innermost send, or a new scope-level block
	OpNest                   // new implicit send with the subject as receiver
	OpEnd                    // mark the innermost send ended
	OpClose                  // ')' : end every send in the block, then close it
	OpFinish                 // end of input: end every top-level send
)

var opNames = map[Op]string{
	OpStart:    "start",
	OpSelector: "selector",
	OpArgument: "argument",
	OpChain:    "chain",
	OpOpen:     "open",
	OpNest:     "nest",
	OpEnd:      "end",
	OpClose:    "close",
	OpFinish:   "finish",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

// Step is one component of a transition.
type Step struct {
	Op       Op
	Operand  Operand
	Selector object.Selector
}

// Transition is everything one lexical unit does to the stack. Transitions
// hold resolved values and selectors, so a recorded list of them can be
// replayed without scanning or classifying again.
type Transition struct {
	Steps   []Step
	Capture bool // the scanner must switch to raw capture next
	Unit    scanner.Unit
}

func (t Transition) String() string {
	parts := make([]string, len(t.Steps))
	for i, st := range t.Steps {
		switch {
		case st.Selector != nil:
			parts[i] = st.Op.String() + " " + st.Selector.Name()
		case st.Operand.Kind != None:
			parts[i] = st.Op.String() + " " + st.Operand.String()
		default:
			parts[i] = st.Op.String()
		}
	}
	return strings.Join(parts, ", ")
}
