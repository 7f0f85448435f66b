package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/sambeau/quip/config"
	"github.com/sambeau/quip/pkg/quip/help"
	"github.com/sambeau/quip/pkg/quip/registry"
	"github.com/sambeau/quip/pkg/quip/repl"
	"github.com/sambeau/quip/pkg/quip/trace"
	"github.com/sambeau/quip/pkg/quip/watch"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// errFailed reports that an expression failed; its error is already printed.
var errFailed = errors.New("evaluation failed")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("quip", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		configPath  = flags.String("config", "", "Path to config file")
		expr        = flags.String("e", "", "Evaluate an expression and exit")
		defsPath    = flags.String("defs", "", "Definitions file of objects and aliases")
		locale      = flags.String("locale", "", "Locale for formatting (e.g. de-DE)")
		step        = flags.Bool("step", false, "Pause before every send")
		traceRuns   = flags.Bool("trace", false, "Record every run in the trace store")
		raw         = flags.Bool("raw", false, "Print inspected values")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "quip version %s\n", Version)
		return nil
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply CLI overrides
	if *defsPath != "" {
		cfg.Definitions = *defsPath
	}
	if *locale != "" {
		cfg.Locale = *locale
	}
	if *step {
		cfg.Engine.Step = true
	}
	if *traceRuns {
		cfg.Trace.Enabled = true
	}
	if *raw {
		cfg.REPL.Raw = true
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	if rest := flags.Args(); len(rest) > 0 {
		switch rest[0] {
		case "describe":
			return describeCommand(cfg, rest[1:], stdout, stderr)
		case "trace":
			return traceCommand(cfg, rest[1:], stdout)
		default:
			return fmt.Errorf("unknown command %q (try --help)", rest[0])
		}
	}

	return evalCommand(ctx, cfg, *expr, stdin, stdout, stderr)
}

// setup builds the registry with the configured definitions. The returned
// watcher is nil when there is no definitions file.
func setup(cfg *config.Config, onReload watch.ReloadFunc, stdout, stderr io.Writer) (*registry.Registry, *watch.Watcher, error) {
	reg := registry.Default()
	if cfg.Definitions == "" {
		return reg, nil, nil
	}
	w, err := watch.New(reg, cfg.Definitions, onReload, stdout, stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("watching definitions: %w", err)
	}
	if err := w.Reload(); err != nil {
		w.Close()
		return nil, nil, fmt.Errorf("loading definitions: %w", err)
	}
	return reg, w, nil
}

// printLogger returns where print output goes and a func that releases it.
func printLogger(cfg *config.Config, stdout, stderr io.Writer) (registry.Logger, func(), error) {
	if cfg.Logging.Quiet {
		return registry.NullLogger(), func() {}, nil
	}
	switch cfg.Logging.Output {
	case "", "stdout":
		return registry.WriterLogger(stdout), func() {}, nil
	case "stderr":
		return registry.WriterLogger(stderr), func() {}, nil
	}
	f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return registry.WriterLogger(f), func() { f.Close() }, nil
}

func openTrace(cfg *config.Config) (*trace.Store, error) {
	return trace.Open(trace.Config{
		Driver:  cfg.Trace.Driver,
		DSN:     cfg.Trace.DSN,
		Path:    cfg.Trace.Path,
		MaxRuns: cfg.Trace.MaxRuns,
	})
}

// evalCommand evaluates expr, or stdin line by line, or starts the REPL.
func evalCommand(ctx context.Context, cfg *config.Config, expr string, stdin io.Reader, stdout, stderr io.Writer) error {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}

	logger, release, err := printLogger(cfg, stdout, stderr)
	if err != nil {
		return err
	}
	defer release()

	var session *repl.Session
	onReload := func(_ *registry.Definitions, err error) {
		if err == nil && session != nil {
			session.ClearCache()
		}
	}
	reg, w, err := setup(cfg, onReload, stdout, stderr)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	opts := repl.Options{
		Registry:    reg,
		Logger:      logger,
		Locale:      tag,
		Prompt:      cfg.REPL.Prompt,
		HistoryFile: cfg.REPL.HistoryFile,
		Raw:         cfg.REPL.Raw,
		Step:        cfg.Engine.Step,
		Version:     Version,
		Stderr:      stderr,
	}
	if w != nil {
		opts.Reload = w.Reload
	}
	if cfg.Trace.Enabled {
		store, err := openTrace(cfg)
		if err != nil {
			return fmt.Errorf("opening trace store: %w", err)
		}
		defer store.Close()
		opts.Trace = store
	}

	interactive := expr == "" && isTerminal(stdin)
	var prompt func(string) (string, error)
	switch {
	case expr != "" && opts.Step:
		prompt = lineReader(stdin, stdout)
	case expr == "" && !interactive:
		// each stdin line is an expression, so there is nobody to step
		opts.Step = false
	}
	session = repl.NewSession(stdout, prompt, opts)

	if w != nil && cfg.Watch {
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
	}

	switch {
	case expr != "":
		if !session.Eval(expr) {
			return errFailed
		}
		return nil
	case interactive:
		repl.Start(session)
		return nil
	}

	failed := false
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !session.Eval(line) {
			failed = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if failed {
		return errFailed
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// lineReader prompts on out and reads answers from in.
func lineReader(in io.Reader, out io.Writer) func(string) (string, error) {
	scanner := bufio.NewScanner(in)
	return func(prompt string) (string, error) {
		io.WriteString(out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}
}

// describeCommand implements 'quip describe [--json|--html] <topic>'
func describeCommand(cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("describe", flag.ContinueOnError)
	flags.SetOutput(stderr)
	jsonOutput := flags.Bool("json", false, "Output as JSON")
	htmlOutput := flags.Bool("html", false, "Output as HTML")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		fmt.Fprintln(stderr, `Usage: quip describe [--json|--html] <topic>

Topics:
  types       List all types
  operators   List operators and their symbols
  builtins    List imported functions
  <type>      Methods of a type (e.g. String, Tuple)
  <selector>  An operator, builtin or alias (e.g. add, +)

Examples:
  quip describe String
  quip describe operators
  quip describe --json Tuple`)
		return errors.New("describe needs a topic")
	}

	reg, w, err := setup(cfg, nil, io.Discard, stderr)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
	}

	result, err := help.DescribeTopic(reg, strings.Join(flags.Args(), " "))
	if err != nil {
		return err
	}

	switch {
	case *jsonOutput:
		out, err := help.FormatJSON(result)
		if err != nil {
			return fmt.Errorf("formatting JSON: %w", err)
		}
		fmt.Fprintln(stdout, string(out))
	case *htmlOutput:
		out, err := help.FormatHTML(result)
		if err != nil {
			return fmt.Errorf("formatting HTML: %w", err)
		}
		io.WriteString(stdout, out)
	default:
		io.WriteString(stdout, help.FormatText(result, 80))
	}
	return nil
}

// traceCommand implements 'quip trace list|show <id>|export <id> <file>'
func traceCommand(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: quip trace list|show <id>|export <id> <file>")
	}
	store, err := openTrace(cfg)
	if err != nil {
		return fmt.Errorf("opening trace store: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "list":
		runs, err := store.Runs(0)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(stdout, "(no runs recorded)")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(stdout, "%s  %s  %-7s %s\n", r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Status, r.Source)
		}
		return nil

	case "show":
		if len(args) != 2 {
			return errors.New("usage: quip trace show <id>")
		}
		info, err := store.Get(args[1])
		if err != nil {
			return err
		}
		steps, err := store.Steps(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Run:     %s\nSource:  %s\nStatus:  %s\n", info.ID, info.Source, info.Status)
		if info.Error != "" {
			fmt.Fprintf(stdout, "Error:   %s\n", info.Error)
		}
		fmt.Fprintln(stdout)
		for _, st := range steps {
			fmt.Fprintf(stdout, "%3d  [%d] %-9s %-12s %s", st.N, st.Seq, st.Phase, st.Selector, strings.Join(st.Operands, " "))
			if st.Result != "" {
				fmt.Fprintf(stdout, " => %s", st.Result)
			}
			if st.LongRunning {
				io.WriteString(stdout, "  (long-running)")
			}
			fmt.Fprintln(stdout)
		}
		return nil

	case "export":
		if len(args) != 3 {
			return errors.New("usage: quip trace export <id> <file>")
		}
		f, err := os.Create(args[2])
		if err != nil {
			return fmt.Errorf("creating export: %w", err)
		}
		if err := store.Export(f, args[1]); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Exported run %s to %s\n", args[1], args[2])
		return nil
	}
	return fmt.Errorf("unknown trace command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `quip - An expression engine for chained sends

Usage:
  quip [options]                         Start the REPL (or read lines from stdin)
  quip [options] -e "expr"               Evaluate one expression
  quip describe [--json|--html] <topic>  Show help for a type or selector
  quip trace list|show <id>|export <id> <file>

Options:
  -e EXPR          Evaluate an expression and exit
  --config PATH    Path to config file (default: auto-detect)
  --defs PATH      Definitions file of objects and aliases
  --locale TAG     Locale for formatted output (e.g. de-DE)
  --step           Pause before every send
  --trace          Record runs in the trace store
  --raw            Print inspected values
  --version        Show version
  --help           Show this help

Config Resolution:
  1. --config flag
  2. QUIP_CONFIG environment variable
  3. ./quip.yaml
  4. ~/.config/quip/quip.yaml

Examples:
  quip -e "1 add 2 mul 3"
  quip -e "'hello world' title"
  quip --locale de-DE -e "1234567 format"
  quip describe String

`)
}
