package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/sambeau/quip/pkg/quip/engine"
	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/help"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/quip"
	"github.com/sambeau/quip/pkg/quip/registry"
	"github.com/sambeau/quip/pkg/quip/trace"
)

// Options configures a Session.
type Options struct {
	Registry    *registry.Registry // nil means registry.Default()
	Logger      registry.Logger    // print output; nil writes to the session's output
	Locale      language.Tag
	Prompt      string
	HistoryFile string // empty disables history
	Raw         bool
	Step        bool
	Trace       *trace.Store // nil disables tracing
	Reload      func() error // :reload; nil when there is nothing to reload
	Version     string
	Width       int       // help text width; 0 means 80
	Stderr      io.Writer // evaluation errors; nil means the session's output
}

// Session evaluates console input. Each distinct input is compiled once and
// replayed when it is entered again.
type Session struct {
	opts   Options
	out    io.Writer
	errOut io.Writer
	logger registry.Logger

	// prompt reads one answer while stepping.
	prompt func(string) (string, error)

	mu    sync.Mutex
	cache map[string]*engine.Program
	order []string // cache keys in first-use order

	raw  bool
	step bool
}

// NewSession creates a session writing to out. prompt reads step commands;
// with a nil prompt, step mode runs straight through. Start replaces it with
// the console's own prompt.
func NewSession(out io.Writer, prompt func(string) (string, error), opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.Locale == (language.Tag{}) {
		opts.Locale = language.AmericanEnglish
	}
	logger := opts.Logger
	if logger == nil {
		logger = registry.WriterLogger(out)
	}
	errOut := opts.Stderr
	if errOut == nil {
		errOut = out
	}
	return &Session{
		opts:   opts,
		out:    out,
		errOut: errOut,
		logger: logger,
		prompt: prompt,
		cache:  make(map[string]*engine.Program),
		raw:    opts.Raw,
		step:   opts.Step,
	}
}

// Raw reports whether values are printed inspected rather than formatted.
func (s *Session) Raw() bool { return s.raw }

// ClearCache drops every compiled program. It is safe to call from another
// goroutine, such as a definitions watcher.
func (s *Session) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*engine.Program)
	s.order = nil
}

func (s *Session) program(source string) *engine.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.cache[source]
	if !ok {
		p = engine.New(source)
		s.cache[source] = p
		s.order = append(s.order, source)
	}
	return p
}

// Eval evaluates one complete input and prints its values or its error.
// It reports whether the input succeeded.
func (s *Session) Eval(source string) bool {
	ctx := registry.NewContext(s.opts.Registry)
	ctx.Logger = s.logger
	ctx.Locale = s.opts.Locale

	var opts []engine.Option
	var run *trace.Run
	if s.opts.Trace != nil {
		var err error
		if run, err = s.opts.Trace.Begin(source); err != nil {
			fmt.Fprintf(s.errOut, "warning: trace disabled for this run: %v\n", err)
		} else {
			opts = append(opts, engine.WithTracer(run))
		}
	}

	p := s.program(source)
	var values []object.Object
	var err error
	if s.step {
		values, err = s.stepRun(p, ctx, opts)
	} else {
		values, err = p.RunContext(context.Background(), ctx, opts...)
	}

	if run != nil {
		if terr := run.End(err); terr != nil {
			fmt.Fprintf(s.errOut, "warning: %v\n", terr)
		}
	}
	if err != nil {
		printError(s.errOut, err)
		return false
	}
	s.printValues(values)
	return true
}

func (s *Session) printValues(values []object.Object) {
	if !s.raw && (len(values) == 0 || (len(values) == 1 && values[0] == object.NULL)) {
		io.WriteString(s.out, "OK\n")
		return
	}
	for _, v := range values {
		if s.raw {
			io.WriteString(s.out, v.Inspect()+"\n")
		} else {
			io.WriteString(s.out, quip.Format(v, s.opts.Locale.String())+"\n")
		}
	}
}

// printError prints a structured error with its hints, or a plain one.
func printError(out io.Writer, err error) {
	var qe *qerrors.QuipError
	if errors.As(err, &qe) {
		io.WriteString(out, qe.PrettyString()+"\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

// Command handles a console meta-command. It reports whether the command was
// recognised.
func (s *Session) Command(line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?       Show this help")
		fmt.Fprintln(s.out, "  :describe <topic>   Help for a type, operator or builtin (try: types)")
		fmt.Fprintln(s.out, "  :objects            List bound objects")
		fmt.Fprintln(s.out, "  :step               Toggle step mode (pause before every send)")
		fmt.Fprintln(s.out, "  :raw                Toggle raw output mode (inspected values)")
		fmt.Fprintln(s.out, "  :cache [clear]      Show or clear compiled inputs")
		fmt.Fprintln(s.out, "  :reload             Reload the definitions file")
		fmt.Fprintln(s.out, "  exit, quit          Exit the REPL")
		return true

	case ":describe", ":d":
		result, err := help.DescribeTopic(s.opts.Registry, arg)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return true
		}
		io.WriteString(s.out, help.FormatText(result, s.opts.Width))
		return true

	case ":objects":
		names := s.opts.Registry.ObjectNames()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "(no bound objects)")
			return true
		}
		for _, name := range names {
			v, _ := s.opts.Registry.Object(name)
			value := v.Inspect()
			if len(value) > 60 {
				value = value[:57] + "..."
			}
			fmt.Fprintf(s.out, "  @%s: %s = %s\n", name, v.Type(), value)
		}
		return true

	case ":step":
		s.step = !s.step
		if s.step {
			fmt.Fprintln(s.out, "Step mode ON (Enter: next, c: continue, = value: supply, q: quit)")
		} else {
			fmt.Fprintln(s.out, "Step mode OFF")
		}
		return true

	case ":raw":
		s.raw = !s.raw
		if s.raw {
			fmt.Fprintln(s.out, "Raw output mode ON (inspected values)")
		} else {
			fmt.Fprintln(s.out, "Raw output mode OFF (formatted values)")
		}
		return true

	case ":cache":
		if arg == "clear" {
			s.ClearCache()
			fmt.Fprintln(s.out, "Cache cleared")
			return true
		}
		s.printCache()
		return true

	case ":reload":
		if s.opts.Reload == nil {
			fmt.Fprintln(s.out, "No definitions file to reload")
			return true
		}
		if err := s.opts.Reload(); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return true
		}
		s.ClearCache()
		fmt.Fprintln(s.out, "Definitions reloaded")
		return true
	}

	fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	return false
}

func (s *Session) printCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		fmt.Fprintln(s.out, "(no compiled inputs)")
		return
	}
	for _, src := range s.order {
		p := s.cache[src]
		state := "pending"
		if p.Compiled() {
			state = fmt.Sprintf("%d transitions", p.Len())
		}
		fmt.Fprintf(s.out, "  %-40s %s\n", src, state)
	}
}

// completionWords lists every selector, object and command name, sorted.
func (s *Session) completionWords() []string {
	reg := s.opts.Registry
	seen := make(map[string]bool)
	add := func(words ...string) {
		for _, w := range words {
			seen[w] = true
		}
	}
	add(reg.Operators().Names()...)
	add(reg.Imported().Names()...)
	for alias := range reg.Aliases() {
		add(alias)
	}
	for _, t := range reg.Types() {
		add(t)
		add(reg.Methods(object.ObjectType(t)).Names()...)
		add(reg.Statics(object.ObjectType(t)).Names()...)
	}
	for _, name := range reg.ObjectNames() {
		add("@" + name)
	}
	add(":help", ":describe", ":objects", ":step", ":raw", ":cache", ":reload")

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Complete returns whole-line completions for line: the last word is
// replaced by each word it prefixes.
func (s *Session) Complete(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if last := line[len(line)-1]; last == ' ' || last == '\t' || last == '(' {
		return nil
	}

	start := strings.LastIndexAny(line, " \t(") + 1
	head, word := line[:start], line[start:]

	var matches []string
	for _, w := range s.completionWords() {
		if strings.HasPrefix(w, word) {
			matches = append(matches, head+w)
		}
	}
	return matches
}
