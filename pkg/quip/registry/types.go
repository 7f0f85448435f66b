package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/sambeau/quip/pkg/quip/object"
)

// typeMethods are answered by every type handle.
var typeMethods = MethodRegistry{
	"name": {
		Fn:          typeName,
		Arity:       "0",
		Description: "The type's name as a string",
	},
	"methods": {
		Fn:          typeMethodNames,
		Arity:       "0",
		Description: "Names of the type-bound methods of the type",
	},
}

// staticMethods are answered by the handle of one type.
var staticMethods = map[object.ObjectType]MethodRegistry{
	object.INTEGER_OBJ: {
		"parse": {Fn: staticIntParse, Arity: "1", Description: "Parse an integer from text"},
	},
	object.FLOAT_OBJ: {
		"parse": {Fn: staticFloatParse, Arity: "1", Description: "Parse a float from text"},
	},
	object.STRING_OBJ: {
		"of": {Fn: staticStringOf, Arity: "1", Description: "Text form of any value"},
	},
	object.TUPLE_OBJ: {
		"of": {Fn: staticTupleOf, Arity: "0+", Description: "A tuple of the arguments"},
	},
	object.DATETIME_OBJ: {
		"parse": {Fn: staticDateTimeParse, Arity: "1", Description: "Parse a date or date-time in any common layout"},
		"now":   {Fn: staticDateTimeNow, Arity: "0", Description: "The current date-time"},
	},
}

func typeRef(o object.Object) (*object.TypeRef, error) {
	ref, ok := o.(*object.TypeRef)
	if !ok {
		return nil, fmt.Errorf("expected a Type, got %s", o.Type())
	}
	return ref, nil
}

func typeName(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	ref, err := typeRef(recv)
	if err != nil {
		return nil, err
	}
	return &object.String{Value: string(ref.Name)}, nil
}

func typeMethodNames(recv object.Object, _ []object.Object, ctx *Context) (object.Object, error) {
	ref, err := typeRef(recv)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return nil, errNoContext
	}
	names := ctx.Registry().Methods(ref.Name).Names()
	elems := make([]object.Object, len(names))
	for i, n := range names {
		elems[i] = &object.String{Value: n}
	}
	return &object.Tuple{Elements: elems}, nil
}

func staticIntParse(_ object.Object, args []object.Object, _ *Context) (object.Object, error) {
	switch v := args[0].(type) {
	case *object.Integer:
		return v, nil
	case *object.Float:
		return &object.Integer{Value: int64(v.Value)}, nil
	}
	text, err := stringValue(args[0], "text")
	if err != nil {
		return nil, err
	}
	i, ok := parseInt(strings.TrimSpace(text))
	if !ok {
		return nil, fmt.Errorf("cannot parse %q as Int", text)
	}
	return &object.Integer{Value: i}, nil
}

func staticFloatParse(_ object.Object, args []object.Object, _ *Context) (object.Object, error) {
	if f, ok := object.Number(args[0]); ok {
		return &object.Float{Value: f}, nil
	}
	text, err := stringValue(args[0], "text")
	if err != nil {
		return nil, err
	}
	f, ok := parseFloat(strings.TrimSpace(text))
	if !ok {
		return nil, fmt.Errorf("cannot parse %q as Float", text)
	}
	return &object.Float{Value: f}, nil
}

func staticStringOf(_ object.Object, args []object.Object, _ *Context) (object.Object, error) {
	return &object.String{Value: args[0].Inspect()}, nil
}

func staticTupleOf(_ object.Object, args []object.Object, _ *Context) (object.Object, error) {
	elems := make([]object.Object, len(args))
	copy(elems, args)
	return &object.Tuple{Elements: elems}, nil
}

func staticDateTimeParse(_ object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	if d, ok := args[0].(*object.DateTime); ok {
		return d, nil
	}
	text, err := stringValue(args[0], "text")
	if err != nil {
		return nil, err
	}
	t, err := ParseDateTime(text, ctx.locale())
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as DateTime: %w", text, err)
	}
	return &object.DateTime{Value: t}, nil
}

func staticDateTimeNow(_ object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	return &object.DateTime{Value: time.Now()}, nil
}
