// Package repl is the interactive quip console.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

const (
	PROMPT              = "quip> "
	CONTINUATION_PROMPT = "....  "
)

const LOGO = `
▄▀█ █ █ █ █▀█
▀▀█ █▄█ █ █▀▀`

// Start runs the console for session until exit, quit or Ctrl+D.
func Start(session *Session) {
	out, opts := session.out, session.opts

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(session.Complete)
	session.prompt = line.Prompt

	if opts.HistoryFile != "" {
		if f, err := os.Open(opts.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(opts.HistoryFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintln(out, LOGO)
	if opts.Version != "" {
		fmt.Fprintln(out, "v", opts.Version)
	}
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	basePrompt := opts.Prompt
	if basePrompt == "" {
		basePrompt = PROMPT
	}

	var inputBuffer strings.Builder
	for {
		currentPrompt := basePrompt
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 {
			switch {
			case trimmed == "exit" || trimmed == "quit":
				fmt.Fprintln(out, "Goodbye!")
				return
			case strings.HasPrefix(trimmed, ":"):
				session.Command(trimmed)
				line.AppendHistory(trimmed)
				continue
			case trimmed == "":
				continue
			}
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		line.AppendHistory(fullInput)
		session.Eval(strings.TrimSpace(fullInput))
		inputBuffer.Reset()
	}
}

// needsMoreInput reports whether input leaves a block or a quote open.
// Quotes only open at the start of a unit, as in the scanner.
func needsMoreInput(input string) bool {
	depth := 0
	unitStart := true
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case unitStart && (ch == '"' || ch == '\''):
			end := strings.IndexByte(input[i+1:], ch)
			if end < 0 {
				return true
			}
			i += end + 1
			unitStart = false
		case ch == '(':
			depth++
			unitStart = true
		case ch == ')':
			depth--
			if depth < 0 {
				// let the scanner report the stray paren
				return false
			}
			unitStart = true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			unitStart = true
		default:
			unitStart = false
		}
	}
	return depth > 0
}
