package repl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sambeau/quip/pkg/quip/engine"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/registry"
)

// errStepQuit ends a stepped run at the user's request.
var errStepQuit = errors.New("run abandoned")

const stepUsage = "Enter: next, c: continue, = value: supply result, q: quit"

// stepRun drives p one event at a time, pausing before every send.
func (s *Session) stepRun(p *engine.Program, ctx *registry.Context, opts []engine.Option) ([]object.Object, error) {
	r := p.Start(ctx, opts...)
	cont := s.prompt == nil
	for {
		ev, err := r.Step()
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case engine.EventReady:
			if cont {
				continue
			}
			var quit bool
			if cont, quit = s.pause(r, ev.Call); quit {
				return nil, errStepQuit
			}
		case engine.EventEvaluated:
			if !cont {
				fmt.Fprintf(s.out, "  => %s\n", ev.Result.Inspect())
			}
		case engine.EventDone:
			return ev.Values, nil
		}
	}
}

// pause shows a ready call and reads commands until one moves the run on.
func (s *Session) pause(r *engine.Runner, call *engine.Call) (cont, quit bool) {
	fmt.Fprintln(s.out, describeCall(call))
	for {
		answer, err := s.prompt("step> ")
		if err != nil {
			return false, true
		}
		answer = strings.TrimSpace(answer)
		switch {
		case answer == "" || answer == "n":
			return false, false
		case answer == "c":
			return true, false
		case answer == "q":
			return false, true
		case strings.HasPrefix(answer, "="):
			if err := r.Supply(supplied(strings.TrimPrefix(answer, "="))); err != nil {
				printError(s.out, err)
				continue
			}
			return false, false
		default:
			fmt.Fprintln(s.out, stepUsage)
		}
	}
}

// describeCall renders a call as "[seq] receiver selector args".
func describeCall(call *engine.Call) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]", call.Seq)
	if len(call.Operands) > 0 {
		b.WriteString(" " + call.Operands[0].Inspect())
	}
	b.WriteString(" " + call.Selector.Name())
	for _, op := range call.Operands[min(1, len(call.Operands)):] {
		b.WriteString(" " + op.Inspect())
	}
	if call.LongRunning {
		b.WriteString("  (long-running)")
	}
	return b.String()
}

// supplied parses a value typed at the step prompt. Quoted text is a String.
func supplied(text string) object.Object {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') && text[len(text)-1] == text[0] {
		return registry.ParseLiteral(text[1:len(text)-1], true)
	}
	return registry.ParseLiteral(text, false)
}
