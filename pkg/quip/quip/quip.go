// Package quip provides a public API for embedding the quip expression engine.
//
//	res, err := quip.Eval("(5 add 6) neg", quip.WithLogger(registry.NullLogger()))
//	fmt.Println(res) // -11
package quip

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/sambeau/quip/pkg/quip/engine"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/registry"
)

// Logger receives print output.
type Logger = registry.Logger

// Option configures an evaluation.
type Option func(*config)

type config struct {
	reg     *registry.Registry
	logger  Logger
	subject object.Object
	locale  string
	tracer  engine.Tracer
	goctx   context.Context
}

// WithRegistry evaluates against reg instead of the default registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(c *config) { c.reg = reg }
}

// WithLogger sends print output to l.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSubject makes v the run's subject ($). Go values are converted.
func WithSubject(v any) Option {
	return func(c *config) { c.subject = object.FromGo(v) }
}

// WithLocale sets the locale used by format, title and date parsing.
func WithLocale(locale string) Option {
	return func(c *config) { c.locale = locale }
}

// WithTracer receives every step of the run.
func WithTracer(t engine.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithContext allows the run to be cancelled between steps.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.goctx = ctx }
}

// Result is the output of one evaluation.
type Result struct {
	Values []object.Object

	// Failures lists every failure reported during the run, including
	// those of nested runs.
	Failures []error
}

// Value returns the output as one value: nothing is null, one value is
// itself, several are a tuple.
func (r *Result) Value() object.Object {
	switch len(r.Values) {
	case 0:
		return object.NULL
	case 1:
		return r.Values[0]
	}
	return &object.Tuple{Elements: r.Values}
}

func (r *Result) String() string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = v.Inspect()
	}
	return strings.Join(parts, " ")
}

// NewContext builds a run context from opts. Hosts that replay compiled
// programs keep one and pass it to each run.
func NewContext(opts ...Option) (*registry.Context, error) {
	cfg := apply(opts)
	return cfg.context()
}

// Eval evaluates source and returns its output values. On failure the
// returned Result still carries the reported failures.
func Eval(source string, opts ...Option) (*Result, error) {
	cfg := apply(opts)
	ctx, err := cfg.context()
	if err != nil {
		return nil, err
	}
	var engineOpts []engine.Option
	if cfg.tracer != nil {
		engineOpts = append(engineOpts, engine.WithTracer(cfg.tracer))
	}
	values, err := engine.New(source).RunContext(cfg.goctx, ctx, engineOpts...)
	return &Result{Values: values, Failures: ctx.Failures()}, err
}

func apply(opts []Option) *config {
	cfg := &config{goctx: context.Background()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) context() (*registry.Context, error) {
	ctx := registry.NewContext(c.reg)
	if c.logger != nil {
		ctx.Logger = c.logger
	}
	if c.locale != "" {
		tag, err := language.Parse(c.locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", c.locale, err)
		}
		ctx.Locale = tag
	}
	if c.subject != nil {
		ctx = ctx.WithSubject(c.subject)
	}
	return ctx, nil
}

// Format renders v for people: numbers with locale grouping, date-times in
// the locale's long style, tuples element by element. An empty or malformed
// locale means American English.
func Format(v object.Object, locale string) string {
	tag := language.AmericanEnglish
	if locale != "" {
		if t, err := language.Parse(locale); err == nil {
			tag = t
		}
	}
	return format(v, tag)
}

func format(v object.Object, tag language.Tag) string {
	switch x := v.(type) {
	case *object.Integer, *object.Float:
		return registry.FormatNumber(x, tag)
	case *object.DateTime:
		return registry.FormatDateTime(x.Value, "long", tag)
	case *object.String:
		return x.Value
	case *object.Tuple:
		parts := make([]string, len(x.Elements))
		for i, e := range x.Elements {
			parts[i] = format(e, tag)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return v.Inspect()
}
