// Package engine runs quip expressions.
//
// A run drives scanner, classifier and reducer one unit at a time and
// evaluates every send the moment it is complete, so there is never a full
// syntax tree. Results flow between sends through a result stack owned by the
// Context. A successful run leaves its transition log on the Program; later
// runs replay that log and skip scanning and classification.
package engine

import (
	"context"
	"sync"

	"github.com/sambeau/quip/pkg/quip/grammar"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/send"
)

// Context is everything a run needs from its host: name resolution, the run's
// subject, the shared result stack, and somewhere to report failures. It is
// also the object.Env handed to selectors.
type Context interface {
	grammar.Resolver
	Results() *ResultStack
	ReportFailure(err error)
}

// Program is one source text and, after a successful run, its compiled form.
// A Program may be run concurrently by independent contexts.
type Program struct {
	source string

	mu       sync.RWMutex
	compiled []send.Transition
}

// New creates an uncompiled program.
func New(source string) *Program {
	return &Program{source: source}
}

// Compile runs source once against ctx and returns the program with its cache
// filled. Classification needs the types of already evaluated sub-expressions,
// so compiling evaluates.
func Compile(source string, ctx Context) (*Program, error) {
	p := New(source)
	if _, err := p.Run(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// Run compiles and runs source once.
func Run(source string, ctx Context) ([]object.Object, error) {
	return New(source).Run(ctx)
}

// Source returns the program text.
func (p *Program) Source() string { return p.source }

// Compiled reports whether the program holds a replayable transition log.
func (p *Program) Compiled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.compiled != nil
}

// Len returns the number of cached transitions.
func (p *Program) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.compiled)
}

// Transitions returns a copy of the cached transition log, or nil when the
// program is not compiled.
func (p *Program) Transitions() []send.Transition {
	log := p.log()
	if log == nil {
		return nil
	}
	out := make([]send.Transition, len(log))
	for i, t := range log {
		t.Steps = append([]send.Step(nil), t.Steps...)
		out[i] = t
	}
	return out
}

// log returns the cached log itself. Runners only read it.
func (p *Program) log() []send.Transition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.compiled
}

// Invalidate drops the compiled form so the next run rescans the source.
func (p *Program) Invalidate() {
	p.mu.Lock()
	p.compiled = nil
	p.mu.Unlock()
}

func (p *Program) store(log []send.Transition) {
	p.mu.Lock()
	p.compiled = log
	p.mu.Unlock()
}

// Run drains a runner to completion and returns the run's output values.
func (p *Program) Run(ctx Context) ([]object.Object, error) {
	return p.RunContext(context.Background(), ctx)
}

// RunContext is Run with cooperative cancellation between steps. A cancelled
// run is abandoned: the error is returned but not reported to the Context and
// the cache is left as it was.
func (p *Program) RunContext(goctx context.Context, ctx Context, opts ...Option) ([]object.Object, error) {
	r := p.Start(ctx, opts...)
	for {
		if err := goctx.Err(); err != nil {
			r.abandon(err)
			return nil, err
		}
		ev, err := r.Step()
		if err != nil {
			return nil, err
		}
		if ev.Kind == EventDone {
			return ev.Values, nil
		}
	}
}
