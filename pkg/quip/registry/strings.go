package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sambeau/quip/pkg/quip/object"
)

// stringMethods is the declarative registry for String methods.
var stringMethods = MethodRegistry{
	"length": {
		Fn:          stringLength,
		Arity:       "0",
		Description: "Number of characters (runes)",
	},
	"upper": {
		Fn:          stringCase(cases.Upper),
		Arity:       "0",
		Description: "Upper-cased using the run's locale",
	},
	"lower": {
		Fn:          stringCase(cases.Lower),
		Arity:       "0",
		Description: "Lower-cased using the run's locale",
	},
	"title": {
		Fn:          stringCase(cases.Title),
		Arity:       "0",
		Description: "Title-cased using the run's locale",
	},
	"trim": {
		Fn:          stringTrim,
		Arity:       "0-1",
		Description: "Remove surrounding whitespace, or the characters of a cutset",
	},
	"split": {
		Fn:          stringSplit,
		Arity:       "0-1",
		Description: "Split on a separator into a tuple; on whitespace without one",
	},
	"regmatch": {
		Fn:          stringRegmatch,
		Arity:       "1",
		Verbatim:    true,
		Description: "True if the rest of the input, as a regular expression, matches",
	},
	"replace": {
		Fn:          stringReplace,
		Arity:       "2",
		Description: "Replace every occurrence of the first argument with the second",
	},
	"repeat": {
		Fn:          stringRepeat,
		Arity:       "1",
		Description: "The string repeated n times",
	},
}

func stringValue(o object.Object, what string) (string, error) {
	s, ok := o.(*object.String)
	if !ok {
		return "", fmt.Errorf("%s must be a String, got %s", what, o.Type())
	}
	return s.Value, nil
}

func stringLength(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	return &object.Integer{Value: int64(utf8.RuneCountInString(s))}, nil
}

func stringCase(caser func(language.Tag, ...cases.Option) cases.Caser) MethodFunc {
	return func(recv object.Object, _ []object.Object, ctx *Context) (object.Object, error) {
		s, err := stringValue(recv, "receiver")
		if err != nil {
			return nil, err
		}
		return &object.String{Value: caser(ctx.locale()).String(s)}, nil
	}
}

func stringTrim(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return &object.String{Value: strings.TrimSpace(s)}, nil
	}
	cutset, err := stringValue(args[0], "cutset")
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.Trim(s, cutset)}, nil
}

func stringSplit(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	var parts []string
	if len(args) == 0 {
		parts = strings.Fields(s)
	} else {
		sep, err := stringValue(args[0], "separator")
		if err != nil {
			return nil, err
		}
		parts = strings.Split(s, sep)
	}
	elems := make([]object.Object, len(parts))
	for i, p := range parts {
		elems[i] = &object.String{Value: p}
	}
	return &object.Tuple{Elements: elems}, nil
}

func stringRegmatch(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	pattern, err := stringValue(args[0], "pattern")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}
	return object.NativeBool(re.MatchString(s)), nil
}

func stringReplace(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	old, err := stringValue(args[0], "search text")
	if err != nil {
		return nil, err
	}
	repl, err := stringValue(args[1], "replacement")
	if err != nil {
		return nil, err
	}
	return &object.String{Value: strings.ReplaceAll(s, old, repl)}, nil
}

func stringRepeat(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	s, err := stringValue(recv, "receiver")
	if err != nil {
		return nil, err
	}
	n, ok := args[0].(*object.Integer)
	if !ok || n.Value < 0 {
		return nil, fmt.Errorf("repeat count must be a non-negative Int, got %s", args[0].Inspect())
	}
	return &object.String{Value: strings.Repeat(s, int(n.Value))}, nil
}
