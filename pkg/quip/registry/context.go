package registry

import (
	"sync"

	"golang.org/x/text/language"

	"github.com/sambeau/quip/pkg/quip/engine"
	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
)

// Context is the resolution context of one run. Nested runs started by
// selectors such as with and map get a derived Context that shares the result
// stack, registry, logger and failure log, and has its own subject.
type Context struct {
	Logger Logger
	Locale language.Tag

	reg        *Registry
	results    *engine.ResultStack
	subject    object.Object
	hasSubject bool
	shared     *shared
}

var _ engine.Context = (*Context)(nil)

type programKey struct {
	source string
	elem   object.ObjectType
}

// shared is the state every Context derived from one root sees.
type shared struct {
	mu       sync.Mutex
	failures []error
	programs map[programKey]*engine.Program
}

// NewContext creates a root context over reg with an empty result stack.
func NewContext(reg *Registry) *Context {
	if reg == nil {
		reg = Default()
	}
	return &Context{
		Logger:  DefaultLogger,
		Locale:  language.AmericanEnglish,
		reg:     reg,
		results: engine.NewResultStack(),
		shared:  &shared{programs: make(map[programKey]*engine.Program)},
	}
}

// WithSubject derives a context whose subject is v.
func (c *Context) WithSubject(v object.Object) *Context {
	d := *c
	d.subject = v
	d.hasSubject = v != nil
	return &d
}

// Base returns c. Types that embed a *Context satisfy the same lookup.
func (c *Context) Base() *Context { return c }

// Registry returns the registry names resolve against.
func (c *Context) Registry() *Registry { return c.reg }

func (c *Context) Results() *engine.ResultStack { return c.results }

func (c *Context) Subject() (object.Object, bool) { return c.subject, c.hasSubject }

// ReportFailure records err once. A failure raised in a nested run reaches
// the outer run rebased onto the outer source; it replaces the nested record
// instead of being recorded twice.
func (c *Context) ReportFailure(err error) {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	if qe, ok := err.(*qerrors.QuipError); ok {
		for i, f := range c.shared.failures {
			if fq, ok := f.(*qerrors.QuipError); ok && fq.Origin() == qe.Origin() {
				c.shared.failures[i] = qe
				return
			}
		}
	}
	c.shared.failures = append(c.shared.failures, err)
}

// Failures returns every failure reported so far, oldest first.
func (c *Context) Failures() []error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	out := make([]error, len(c.shared.failures))
	copy(out, c.shared.failures)
	return out
}

func (c *Context) ResolveObjectByName(name string) (object.Object, bool) {
	return c.reg.Object(name)
}

func (c *Context) ResolveObjectByType(typeName string) (object.Object, bool) {
	return c.reg.ObjectOfType(object.ObjectType(typeName))
}

func (c *Context) ObjectNames() []string { return c.reg.ObjectNames() }

func (c *Context) ResolveType(name string) (*object.TypeRef, bool) { return c.reg.Type(name) }

func (c *Context) ResolveLiteral(text string, quoted bool) object.Object {
	return ParseLiteral(text, quoted)
}

func (c *Context) ResolveSelector(name string, receiver object.Object) (object.Selector, bool) {
	sel, ok := c.reg.Selector(name, receiver)
	if !ok {
		return nil, false
	}
	return sel, true
}

func (c *Context) SelectorNames(receiver object.Object) []string {
	return c.reg.SelectorNames(receiver)
}

func (c *Context) ResolveMember(subject object.Object, name string) (object.Object, bool) {
	return member(subject, name)
}

// Run evaluates source in a nested run with subject v and returns its output
// as one value.
func (c *Context) Run(source string, v object.Object) (object.Object, error) {
	values, err := engine.Run(source, c.WithSubject(v))
	if err != nil {
		return nil, err
	}
	return collapse(values), nil
}

// RunEach evaluates source once per element of elems, each with the element
// as subject. Classification depends on the subject's type, so one program is
// compiled per element type and replayed for the rest.
func (c *Context) RunEach(source string, elems []object.Object, fn func(i int, result object.Object) error) error {
	for i, e := range elems {
		values, err := c.program(source, e.Type()).Run(c.WithSubject(e))
		if err != nil {
			return err
		}
		if err := fn(i, collapse(values)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) program(source string, elem object.ObjectType) *engine.Program {
	key := programKey{source: source, elem: elem}
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()
	p, ok := c.shared.programs[key]
	if !ok {
		p = engine.New(source)
		c.shared.programs[key] = p
	}
	return p
}

// collapse turns a run's output into one value: nothing is null, one value is
// itself, several are a tuple.
func collapse(values []object.Object) object.Object {
	switch len(values) {
	case 0:
		return object.NULL
	case 1:
		return values[0]
	}
	return &object.Tuple{Elements: values}
}

// locale returns the context's locale, or American English without one.
func (c *Context) locale() language.Tag {
	if c == nil {
		return language.AmericanEnglish
	}
	return c.Locale
}

// logger returns the context's logger, or the stdout logger without one.
func (c *Context) logger() Logger {
	if c == nil || c.Logger == nil {
		return DefaultLogger
	}
	return c.Logger
}
