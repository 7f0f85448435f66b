// Package help answers `describe` topics from a registry: the declared types
// with their methods, the builtin operators and the imported functions. It is
// reachable from the CLI (`quip describe`) and the REPL (`:describe`).
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/registry"
)

// TopicResult represents the help output for a topic
type TopicResult struct {
	Kind        string                `json:"kind"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Methods     []registry.MethodInfo `json:"methods,omitempty"`
	Statics     []registry.MethodInfo `json:"statics,omitempty"`
	Builtins    []registry.MethodInfo `json:"builtins,omitempty"`
	Operators   []OperatorInfo        `json:"operators,omitempty"`
	TypeNames   []string              `json:"type_names,omitempty"`
	Arity       string                `json:"arity,omitempty"`
	Variant     string                `json:"variant,omitempty"`
	Aliases     []string              `json:"aliases,omitempty"`
}

// OperatorInfo describes one builtin operator and the symbols that alias it.
type OperatorInfo struct {
	Name        string   `json:"name"`
	Symbols     []string `json:"symbols,omitempty"`
	Arity       string   `json:"arity"`
	Description string   `json:"description"`
}

// Result kinds.
const (
	KindType         = "type"
	KindTypeList     = "type-list"
	KindOperatorList = "operator-list"
	KindBuiltinList  = "builtin-list"
	KindSelector     = "selector"
)

// DescribeTopic returns help information for the given topic.
// Topics can be: type names (String, tuple), the keywords types, operators
// and builtins, or the name or symbol of an operator or builtin (add, +, print).
func DescribeTopic(reg *registry.Registry, topic string) (*TopicResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("no topic specified (try: types, operators, builtins, String, Tuple)")
	}
	if reg == nil {
		reg = registry.Default()
	}

	if result := describeType(reg, topic); result != nil {
		return result, nil
	}

	switch strings.ToLower(topic) {
	case "types":
		return describeTypes(reg), nil
	case "operators":
		return describeOperators(reg), nil
	case "builtins":
		return describeBuiltins(reg), nil
	}

	if result := describeSelector(reg, topic); result != nil {
		return result, nil
	}

	return nil, unknownTopicError(reg, topic)
}

// describeType returns help for a type, or nil if not found. Type names
// match case-insensitively.
func describeType(reg *registry.Registry, name string) *TopicResult {
	for _, t := range reg.Types() {
		if !strings.EqualFold(t, name) {
			continue
		}
		typ := object.ObjectType(t)
		return &TopicResult{
			Kind:    KindType,
			Name:    t,
			Methods: reg.Methods(typ).ToMethodInfos(registry.TypeBound),
			Statics: reg.Statics(typ).ToMethodInfos(registry.TypeBound),
		}
	}
	return nil
}

func describeTypes(reg *registry.Registry) *TopicResult {
	return &TopicResult{
		Kind:      KindTypeList,
		Name:      "types",
		TypeNames: reg.Types(),
	}
}

func describeOperators(reg *registry.Registry) *TopicResult {
	symbols := symbolsByTarget(reg)
	ops := reg.Operators()
	operators := make([]OperatorInfo, 0, len(ops))
	for _, name := range ops.Names() {
		entry := ops[name]
		operators = append(operators, OperatorInfo{
			Name:        name,
			Symbols:     symbols[name],
			Arity:       entry.Arity,
			Description: entry.Description,
		})
	}
	return &TopicResult{
		Kind:      KindOperatorList,
		Name:      "operators",
		Operators: operators,
	}
}

func describeBuiltins(reg *registry.Registry) *TopicResult {
	return &TopicResult{
		Kind:     KindBuiltinList,
		Name:     "builtins",
		Builtins: reg.Imported().ToMethodInfos(registry.Imported),
	}
}

// describeSelector returns help for a single operator or builtin, looked up
// by name or by alias.
func describeSelector(reg *registry.Registry, name string) *TopicResult {
	aliases := reg.Aliases()
	if target, ok := aliases[name]; ok {
		name = target
	}
	variants := []struct {
		methods registry.MethodRegistry
		variant registry.Variant
	}{
		{reg.Operators(), registry.BuiltinOperator},
		{reg.Imported(), registry.Imported},
	}
	for _, v := range variants {
		entry, ok := v.methods.Get(name)
		if !ok {
			continue
		}
		return &TopicResult{
			Kind:        KindSelector,
			Name:        name,
			Description: entry.Description,
			Arity:       entry.Arity,
			Variant:     v.variant.String(),
			Aliases:     symbolsByTarget(reg)[name],
		}
	}
	return nil
}

// symbolsByTarget inverts the alias table.
func symbolsByTarget(reg *registry.Registry) map[string][]string {
	out := make(map[string][]string)
	for alias, target := range reg.Aliases() {
		out[target] = append(out[target], alias)
	}
	for _, list := range out {
		sort.Strings(list)
	}
	return out
}

// unknownTopicError generates a helpful error for unknown topics
func unknownTopicError(reg *registry.Registry, topic string) error {
	suggestions := findSuggestions(reg, topic)
	if len(suggestions) > 0 {
		return fmt.Errorf("unknown topic: %s\nDid you mean: %s?", topic, strings.Join(suggestions, ", "))
	}
	return fmt.Errorf("unknown topic: %s\nTry: types, operators, builtins, String, Tuple", topic)
}

// findSuggestions finds topics similar to the given unknown topic
func findSuggestions(reg *registry.Registry, topic string) []string {
	topic = strings.ToLower(topic)
	var suggestions []string

	candidates := reg.Types()
	candidates = append(candidates, reg.Operators().Names()...)
	candidates = append(candidates, reg.Imported().Names()...)
	for _, name := range candidates {
		lower := strings.ToLower(name)
		if strings.Contains(lower, topic) || strings.Contains(topic, lower) {
			suggestions = append(suggestions, name)
		}
	}

	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}
