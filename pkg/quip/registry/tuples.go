package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/quip/pkg/quip/object"
)

// tupleMethods is the declarative registry for Tuple methods.
var tupleMethods = MethodRegistry{
	"length": {
		Fn:          tupleLength,
		Arity:       "0",
		Description: "Number of elements",
	},
	"at": {
		Fn:          tupleAt,
		Arity:       "1",
		Description: "Element at a 0-based index; negative indexes count from the end",
	},
	"first": {
		Fn:          tupleFirst,
		Arity:       "0",
		Description: "First element, or null when empty",
	},
	"last": {
		Fn:          tupleLast,
		Arity:       "0",
		Description: "Last element, or null when empty",
	},
	"sum": {
		Fn:          tupleSum,
		Arity:       "0",
		Description: "Sum of numeric elements",
	},
	"join": {
		Fn:          tupleJoin,
		Arity:       "0-1",
		Description: "Elements joined into a string, with an optional separator",
	},
	"sort": {
		Fn:          tupleSort,
		Arity:       "0",
		Description: "Elements in ascending order (numbers, strings or date-times)",
	},
	"map": {
		Fn:          tupleMap,
		Arity:       "1",
		Verbatim:    true,
		Description: "Evaluate the rest of the input for each element ($); the results as a tuple",
	},
	"filter": {
		Fn:          tupleFilter,
		Arity:       "1",
		Verbatim:    true,
		Description: "Elements for which the rest of the input, with the element as $, is truthy",
	},
	"each": {
		Fn:          tupleEach,
		Arity:       "1",
		Verbatim:    true,
		Description: "Evaluate the rest of the input for each element ($); returns the tuple",
	},
}

func tupleValue(o object.Object) ([]object.Object, error) {
	t, ok := o.(*object.Tuple)
	if !ok {
		return nil, fmt.Errorf("expected a Tuple, got %s", o.Type())
	}
	return t.Elements, nil
}

func tupleLength(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	return &object.Integer{Value: int64(len(elems))}, nil
}

func tupleAt(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	idx, ok := args[0].(*object.Integer)
	if !ok {
		return nil, fmt.Errorf("index must be an Int, got %s", args[0].Type())
	}
	i := idx.Value
	if i < 0 {
		i += int64(len(elems))
	}
	if i < 0 || i >= int64(len(elems)) {
		return nil, fmt.Errorf("index %d out of range for tuple of length %d", idx.Value, len(elems))
	}
	return elems[i], nil
}

func tupleFirst(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return object.NULL, nil
	}
	return elems[0], nil
}

func tupleLast(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return object.NULL, nil
	}
	return elems[len(elems)-1], nil
}

func tupleSum(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	var total object.Object = &object.Integer{Value: 0}
	for _, e := range elems {
		if total, err = arith("add")(total, []object.Object{e}, nil); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func tupleJoin(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	sep := ""
	if len(args) > 0 {
		if sep, err = stringValue(args[0], "separator"); err != nil {
			return nil, err
		}
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.Inspect()
	}
	return &object.String{Value: strings.Join(parts, sep)}, nil
}

func tupleSort(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	sorted := make([]object.Object, len(elems))
	copy(sorted, elems)
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		c, err := order(sorted[i], sorted[j])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &object.Tuple{Elements: sorted}, nil
}

// body returns the verbatim source of a map, filter or each.
func body(args []object.Object, ctx *Context) (string, error) {
	if ctx == nil {
		return "", errNoContext
	}
	return stringValue(args[0], "body")
}

func tupleMap(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	src, err := body(args, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]object.Object, len(elems))
	err = ctx.RunEach(src, elems, func(i int, result object.Object) error {
		out[i] = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: out}, nil
}

func tupleFilter(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	src, err := body(args, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]object.Object, 0, len(elems))
	err = ctx.RunEach(src, elems, func(i int, result object.Object) error {
		if object.Truthy(result) {
			out = append(out, elems[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &object.Tuple{Elements: out}, nil
}

func tupleEach(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	elems, err := tupleValue(recv)
	if err != nil {
		return nil, err
	}
	src, err := body(args, ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.RunEach(src, elems, func(int, object.Object) error { return nil }); err != nil {
		return nil, err
	}
	return recv, nil
}
