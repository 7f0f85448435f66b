package engine

import (
	"fmt"

	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/grammar"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
	"github.com/sambeau/quip/pkg/quip/send"
)

// EventKind says why Step returned.
type EventKind uint8

const (
	// EventReady: a send is complete and its operands are resolved. The
	// selector has not been invoked yet.
	EventReady EventKind = iota + 1
	// EventEvaluated: the send of the previous EventReady produced Result.
	EventEvaluated
	// EventDone: the run finished; Values holds its output.
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventEvaluated:
		return "evaluated"
	case EventDone:
		return "done"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

// Call is a send about to be, or just, evaluated.
type Call struct {
	Seq         int // 1-based position in evaluation order
	Send        *send.Send
	Selector    object.Selector
	Operands    []object.Object // receiver first
	LongRunning bool
}

// Event is the result of one Step.
type Event struct {
	Kind   EventKind
	Call   *Call
	Result object.Object
	Values []object.Object
	Replay bool // the run replays a compiled program
}

// Tracer observes every event of a run.
type Tracer interface {
	Trace(ev Event)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Event)

func (f TracerFunc) Trace(ev Event) { f(ev) }

// Option configures a Runner.
type Option func(*Runner)

// WithTracer installs a tracer.
func WithTracer(t Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// Runner is one run of a program as an explicit state machine. Each Step
// advances to the next point a driver can observe. A Runner is not safe for
// concurrent use; once it fails, or its driver stops stepping, it is
// abandoned and must not be reused.
type Runner struct {
	prog   *Program
	ctx    Context
	base   int
	tracer Tracer

	scan       *scanner.Scanner
	classifier *grammar.Classifier
	log        []send.Transition

	replay []send.Transition
	pos    int

	sends    *send.Stack
	queue    []*send.Send
	call     *Call
	supplied object.Object
	seq      int
	finished bool

	done bool
	err  error
}

// Start prepares a run of p against ctx. Nothing is scanned or evaluated
// until the first Step.
func (p *Program) Start(ctx Context, opts ...Option) *Runner {
	r := &Runner{
		prog:  p,
		ctx:   ctx,
		base:  ctx.Results().Len(),
		sends: send.NewStack(),
	}
	if log := p.log(); log != nil {
		r.replay = log
	} else {
		r.scan = scanner.New(p.source)
		r.classifier = grammar.New(ctx, ctx.Results().Peek)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Replaying reports whether the run skips scanning and classification.
func (r *Runner) Replaying() bool { return r.scan == nil }

// Pending returns the call announced by the last EventReady, or nil.
func (r *Runner) Pending() *Call { return r.call }

// Err returns the error that stopped the run, if any.
func (r *Runner) Err() error { return r.err }

// Results returns the entries this run has pushed and not yet consumed. After
// a failure they are the partial results kept for diagnostics.
func (r *Runner) Results() []object.Object {
	items := r.ctx.Results().Items()
	if r.base >= len(items) {
		return nil
	}
	return items[r.base:]
}

// Supply completes the pending long-running call with v instead of invoking
// its selector. The next Step reports it as evaluated.
func (r *Runner) Supply(v object.Object) error {
	if r.call == nil || !r.call.LongRunning || r.supplied != nil {
		return qerrors.New("STATE-0002", nil)
	}
	if v == nil {
		v = object.NULL
	}
	r.supplied = v
	return nil
}

// Step advances the run to its next event.
func (r *Runner) Step() (Event, error) {
	if r.err != nil {
		return Event{}, qerrors.New("STATE-0001", map[string]any{"GoError": r.err.Error()})
	}
	if r.done {
		return Event{Kind: EventDone, Replay: r.Replaying()}, nil
	}

	if r.call != nil {
		return r.evaluate()
	}

	for len(r.queue) == 0 && !r.finished {
		if err := r.advance(); err != nil {
			return Event{}, r.fail(err)
		}
	}

	if len(r.queue) > 0 {
		s := r.queue[0]
		r.queue = r.queue[1:]
		call, err := r.prepare(s)
		if err != nil {
			return Event{}, r.fail(err)
		}
		r.call = call
		return r.emit(Event{Kind: EventReady, Call: call}), nil
	}

	r.done = true
	values := r.ctx.Results().Drain(r.base)
	if r.scan != nil {
		r.prog.store(r.log)
	}
	return r.emit(Event{Kind: EventDone, Values: values}), nil
}

func (r *Runner) emit(ev Event) Event {
	ev.Replay = r.Replaying()
	if r.tracer != nil {
		r.tracer.Trace(ev)
	}
	return ev
}

// advance feeds one transition to the reducer.
func (r *Runner) advance() error {
	var t send.Transition
	if r.scan == nil {
		if r.pos >= len(r.replay) {
			r.finished = true
			return nil
		}
		t = r.replay[r.pos]
		r.pos++
		r.finished = r.pos == len(r.replay)
	} else {
		u, ok, err := r.scan.Next()
		if err != nil {
			return err
		}
		if ok {
			if t, err = r.classifier.Classify(u, r.sends); err != nil {
				return err
			}
			if t.Capture {
				r.scan.Capture()
			}
		} else {
			t = send.Transition{
				Steps: []send.Step{{Op: send.OpFinish}},
				Unit:  r.scan.Here(),
			}
			r.finished = true
		}
		r.log = append(r.log, t)
	}

	done, err := r.sends.Apply(t)
	r.queue = append(r.queue, done...)
	if err != nil {
		if qe, ok := err.(*qerrors.QuipError); ok && !qe.Located() {
			u := t.Unit
			return qe.WithSpan(u.Text, u.Offset, u.Line, u.Column)
		}
		return err
	}
	return nil
}

// prepare resolves the operands of s. Placeholders are resolved right to left:
// nested results were pushed in source order, so the last placeholder owns
// the top of the stack.
func (r *Runner) prepare(s *send.Send) (*Call, error) {
	ops := s.Operands()
	vals := make([]object.Object, len(ops))
	results := r.ctx.Results()

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch op.Kind {
		case send.Value:
			vals[i] = op.Value
		case send.Placeholder:
			if !op.Consume() {
				return nil, r.locate(qerrors.New("INVOKE-0003", nil), s)
			}
			if results.Len() <= r.base {
				return nil, r.locate(qerrors.New("INVOKE-0002", nil), s)
			}
			vals[i], _ = results.Pop()
		case send.Subject, send.Member:
			subj, ok := r.ctx.Subject()
			if !ok {
				return nil, r.locate(qerrors.New("RESOLVE-0004", map[string]any{"Token": op.String()}), s)
			}
			if op.Kind == send.Subject {
				vals[i] = subj
				break
			}
			v, ok := r.ctx.ResolveMember(subj, op.Name)
			if !ok {
				return nil, r.locate(qerrors.New("RESOLVE-0001", map[string]any{"Name": op.String()}), s)
			}
			vals[i] = v
		default:
			return nil, r.locate(qerrors.New("INVOKE-0002", nil), s)
		}
	}

	r.seq++
	return &Call{
		Seq:         r.seq,
		Send:        s,
		Selector:    s.Selector,
		Operands:    vals,
		LongRunning: s.Selector.LongRunning(),
	}, nil
}

// evaluate invokes the pending call, or takes the supplied result, and pushes
// the result.
func (r *Runner) evaluate() (Event, error) {
	call := r.call
	r.call = nil

	result := r.supplied
	r.supplied = nil
	if result == nil {
		var err error
		result, err = call.Selector.Invoke(r.ctx, call.Operands)
		if err != nil {
			qe := qerrors.Wrap(call.Selector.Name(), err)
			// a located error from a verbatim argument came from a nested run
			// of the captured text
			if c := call.Send.Capture; qe.Located() && c.Is(scanner.Argument) {
				qe = qe.Rebase(c.Offset, c.Line, c.Column)
			}
			return Event{}, r.fail(r.locate(qe, call.Send))
		}
		if result == nil {
			result = object.NULL
		}
	}

	r.ctx.Results().Push(result)
	return r.emit(Event{Kind: EventEvaluated, Call: call, Result: result}), nil
}

func (r *Runner) locate(qe *qerrors.QuipError, s *send.Send) *qerrors.QuipError {
	if qe.Located() {
		return qe
	}
	u := s.At
	return qe.WithSpan(u.Text, u.Offset, u.Line, u.Column)
}

// fail stops the run, reports err and drops the program's compiled form.
func (r *Runner) fail(err error) error {
	r.err = err
	r.prog.Invalidate()
	r.ctx.ReportFailure(err)
	return err
}

// abandon stops the run without reporting a failure.
func (r *Runner) abandon(err error) {
	r.err = err
	r.queue = nil
	r.call = nil
}
