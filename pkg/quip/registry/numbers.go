package registry

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sambeau/quip/pkg/quip/object"
)

// numberMethods is shared by Int and Float.
var numberMethods = MethodRegistry{
	"format": {
		Fn:          numberFormat,
		Arity:       "0-1",
		Description: "Digits grouped for the run's locale, or the locale given",
	},
}

// localeArg returns the locale named by args[i], or the context's locale.
func localeArg(args []object.Object, i int, ctx *Context) (language.Tag, error) {
	if len(args) <= i {
		return ctx.locale(), nil
	}
	name, err := stringValue(args[i], "locale")
	if err != nil {
		return language.Und, err
	}
	tag, err := language.Parse(name)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", name, err)
	}
	return tag, nil
}

func numberFormat(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	tag, err := localeArg(args, 0, ctx)
	if err != nil {
		return nil, err
	}
	return &object.String{Value: FormatNumber(recv, tag)}, nil
}

// FormatNumber renders an Int or Float with the grouping and decimal
// separators of tag. Other values are returned as inspected.
func FormatNumber(o object.Object, tag language.Tag) string {
	p := message.NewPrinter(tag)
	switch v := o.(type) {
	case *object.Integer:
		return p.Sprintf("%v", number.Decimal(v.Value))
	case *object.Float:
		return p.Sprintf("%v", number.Decimal(v.Value, number.MaxFractionDigits(6)))
	}
	return o.Inspect()
}
