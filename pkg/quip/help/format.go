package help

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sambeau/quip/pkg/quip/registry"
)

// FormatText formats a TopicResult for terminal output with the given width
func FormatText(result *TopicResult, width int) string {
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder

	switch result.Kind {
	case KindType:
		formatTypeText(&sb, result)
	case KindTypeList:
		formatTypeListText(&sb, result, width)
	case KindOperatorList:
		formatOperatorListText(&sb, result)
	case KindBuiltinList:
		sb.WriteString("Builtin Functions\n")
		sb.WriteString("=================\n\n")
		writeMethods(&sb, result.Builtins)
	case KindSelector:
		formatSelectorText(&sb, result)
	default:
		fmt.Fprintf(&sb, "Unknown result kind: %s\n", result.Kind)
	}

	return sb.String()
}

// FormatJSON formats a TopicResult as JSON
func FormatJSON(result *TopicResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// FormatMarkdown formats a TopicResult as a markdown document.
func FormatMarkdown(result *TopicResult) string {
	var sb strings.Builder

	switch result.Kind {
	case KindType:
		fmt.Fprintf(&sb, "# %s\n\n", result.Name)
		if len(result.Statics) > 0 {
			sb.WriteString("## Statics\n\n")
			methodTable(&sb, result.Statics)
		}
		if len(result.Methods) > 0 {
			sb.WriteString("## Methods\n\n")
			methodTable(&sb, result.Methods)
		}
	case KindTypeList:
		sb.WriteString("# Types\n\n")
		for _, name := range result.TypeNames {
			fmt.Fprintf(&sb, "- `%s`\n", name)
		}
	case KindOperatorList:
		sb.WriteString("# Operators\n\n")
		sb.WriteString("| Selector | Symbols | Arity | Description |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, op := range result.Operators {
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n",
				op.Name, codeList(op.Symbols), op.Arity, escapeCell(op.Description))
		}
	case KindBuiltinList:
		sb.WriteString("# Builtins\n\n")
		methodTable(&sb, result.Builtins)
	case KindSelector:
		fmt.Fprintf(&sb, "# %s\n\n%s\n\n", result.Name, result.Description)
		fmt.Fprintf(&sb, "- Arity: %s\n- Kind: %s\n", result.Arity, result.Variant)
		if len(result.Aliases) > 0 {
			fmt.Fprintf(&sb, "- Aliases: %s\n", codeList(result.Aliases))
		}
	}

	return sb.String()
}

// FormatHTML renders the markdown form of a TopicResult as an HTML fragment.
func FormatHTML(result *TopicResult) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(FormatMarkdown(result)), &buf); err != nil {
		return "", fmt.Errorf("rendering help: %w", err)
	}
	return buf.String(), nil
}

func formatTypeText(sb *strings.Builder, result *TopicResult) {
	fmt.Fprintf(sb, "Type: %s\n", result.Name)

	if len(result.Statics) > 0 {
		sb.WriteString("\nStatics:\n")
		writeMethods(sb, result.Statics)
	}
	if len(result.Methods) > 0 {
		sb.WriteString("\nMethods:\n")
		writeMethods(sb, result.Methods)
	}
	if len(result.Statics) == 0 && len(result.Methods) == 0 {
		sb.WriteString("\n(no type-bound methods)\n")
	}
}

// writeMethods writes one aligned line per method.
func writeMethods(sb *strings.Builder, methods []registry.MethodInfo) {
	maxLen := 0
	for _, m := range methods {
		if n := len(signature(m.Name, m.Arity)); n > maxLen {
			maxLen = n
		}
	}
	for _, m := range methods {
		display := signature(m.Name, m.Arity)
		padding := strings.Repeat(" ", maxLen-len(display)+2)
		fmt.Fprintf(sb, "  %s%s%s\n", display, padding, m.Description)
	}
}

func formatOperatorListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Operators\n")
	sb.WriteString("=========\n\n")

	maxLen := 6
	for _, op := range result.Operators {
		if n := len(operatorLabel(op)); n > maxLen {
			maxLen = n
		}
	}
	for _, op := range result.Operators {
		label := operatorLabel(op)
		padding := strings.Repeat(" ", maxLen-len(label)+2)
		fmt.Fprintf(sb, "  %s%s%s\n", label, padding, op.Description)
	}
}

func operatorLabel(op OperatorInfo) string {
	if len(op.Symbols) == 0 {
		return op.Name
	}
	return fmt.Sprintf("%s (%s)", op.Name, strings.Join(op.Symbols, " "))
}

// formatTypeListText wraps the type names to width.
func formatTypeListText(sb *strings.Builder, result *TopicResult, width int) {
	sb.WriteString("Available Types\n")
	sb.WriteString("===============\n\n")

	line := " "
	for i, name := range result.TypeNames {
		item := " " + name
		if i < len(result.TypeNames)-1 {
			item += ","
		}
		if len(line)+len(item) > width && line != " " {
			sb.WriteString(line + "\n")
			line = " "
		}
		line += item
	}
	if line != " " {
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\nUse 'quip describe <type>' for details on a specific type.\n")
}

func formatSelectorText(sb *strings.Builder, result *TopicResult) {
	fmt.Fprintf(sb, "%s\n\n", signature(result.Name, result.Arity))
	fmt.Fprintf(sb, "%s\n\n", result.Description)
	fmt.Fprintf(sb, "Arity: %s\n", result.Arity)
	fmt.Fprintf(sb, "Kind: %s\n", result.Variant)
	if len(result.Aliases) > 0 {
		fmt.Fprintf(sb, "Aliases: %s\n", strings.Join(result.Aliases, " "))
	}
}

func methodTable(sb *strings.Builder, methods []registry.MethodInfo) {
	sb.WriteString("| Selector | Arity | Description |\n")
	sb.WriteString("|---|---|---|\n")
	for _, m := range methods {
		fmt.Fprintf(sb, "| `%s` | %s | %s |\n", m.Name, m.Arity, escapeCell(m.Description))
	}
	sb.WriteString("\n")
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + escapeCell(s) + "`"
	}
	return strings.Join(quoted, " ")
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// signature shows a selector with its argument slots: "split [arg?]".
func signature(name, arity string) string {
	params := arityToParams(arity)
	if params == "" {
		return name
	}
	return name + " " + params
}

// arityToParams converts an arity string to a parameter representation
func arityToParams(arity string) string {
	switch arity {
	case "", "0":
		return ""
	case "1":
		return "arg"
	case "2":
		return "arg1 arg2"
	case "0-1":
		return "arg?"
	case "1-2":
		return "arg1 arg2?"
	case "0-2":
		return "arg1? arg2?"
	case "1+":
		return "arg ..."
	case "0+":
		return "..."
	default:
		return "..."
	}
}
