package registry

import (
	"fmt"
	"math"
	"strings"

	"github.com/sambeau/quip/pkg/quip/object"
)

// operatorAliases maps operator symbols to the selectors they name.
var operatorAliases = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "mod",
	"==": "eq",
	"!=": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
	"&&": "and",
	"||": "or",
}

// operatorMethods are available on every receiver.
var operatorMethods = MethodRegistry{
	"add": {Fn: opAdd, Arity: "1", Description: "Sum of numbers, or concatenation of strings or tuples"},
	"sub": {Fn: arith("sub"), Arity: "1", Description: "Difference of two numbers"},
	"mul": {Fn: opMul, Arity: "1", Description: "Product of two numbers, or a string repeated"},
	"div": {Fn: arith("div"), Arity: "1", Description: "Quotient of two numbers (integer division for integers)"},
	"mod": {Fn: arith("mod"), Arity: "1", Description: "Remainder of integer division"},
	"neg": {Fn: opNeg, Arity: "0", Description: "Negated number"},
	"abs": {Fn: opAbs, Arity: "0", Description: "Absolute value"},
	"eq":  {Fn: opEq, Arity: "1", Description: "Structural equality"},
	"ne":  {Fn: opNe, Arity: "1", Description: "Structural inequality"},
	"lt":  {Fn: compare("lt"), Arity: "1", Description: "Less than"},
	"le":  {Fn: compare("le"), Arity: "1", Description: "Less than or equal"},
	"gt":  {Fn: compare("gt"), Arity: "1", Description: "Greater than"},
	"ge":  {Fn: compare("ge"), Arity: "1", Description: "Greater than or equal"},
	"and": {Fn: opAnd, Arity: "1", Description: "True if both values are truthy"},
	"or":  {Fn: opOr, Arity: "1", Description: "True if either value is truthy"},
	"not": {Fn: opNot, Arity: "0", Description: "True if the value is falsy"},
}

func typeMismatch(op string, left, right object.Object) error {
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, left.Type(), right.Type())
}

func opAdd(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	right := args[0]
	switch l := recv.(type) {
	case *object.String:
		if r, ok := right.(*object.String); ok {
			return &object.String{Value: l.Value + r.Value}, nil
		}
	case *object.Tuple:
		if r, ok := right.(*object.Tuple); ok {
			elems := make([]object.Object, 0, len(l.Elements)+len(r.Elements))
			elems = append(elems, l.Elements...)
			elems = append(elems, r.Elements...)
			return &object.Tuple{Elements: elems}, nil
		}
	default:
		return arith("add")(recv, args, nil)
	}
	return nil, typeMismatch("add", recv, right)
}

func opMul(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	if s, ok := recv.(*object.String); ok {
		n, ok := args[0].(*object.Integer)
		if !ok || n.Value < 0 {
			return nil, typeMismatch("mul", recv, args[0])
		}
		return &object.String{Value: strings.Repeat(s.Value, int(n.Value))}, nil
	}
	return arith("mul")(recv, args, ctx)
}

// arith applies a numeric operator. Two integers give an integer; any float
// operand promotes the result to a float.
func arith(op string) MethodFunc {
	return func(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
		right := args[0]
		li, lInt := recv.(*object.Integer)
		ri, rInt := right.(*object.Integer)
		if lInt && rInt {
			return intArith(op, li.Value, ri.Value)
		}
		lf, ok1 := object.Number(recv)
		rf, ok2 := object.Number(right)
		if !ok1 || !ok2 {
			return nil, typeMismatch(op, recv, right)
		}
		return floatArith(op, lf, rf)
	}
}

func intArith(op string, a, b int64) (object.Object, error) {
	switch op {
	case "add":
		return &object.Integer{Value: a + b}, nil
	case "sub":
		return &object.Integer{Value: a - b}, nil
	case "mul":
		return &object.Integer{Value: a * b}, nil
	case "div":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return &object.Integer{Value: a / b}, nil
	case "mod":
		if b == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return &object.Integer{Value: a % b}, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func floatArith(op string, a, b float64) (object.Object, error) {
	switch op {
	case "add":
		return &object.Float{Value: a + b}, nil
	case "sub":
		return &object.Float{Value: a - b}, nil
	case "mul":
		return &object.Float{Value: a * b}, nil
	case "div":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return &object.Float{Value: a / b}, nil
	case "mod":
		if b == 0 {
			return nil, fmt.Errorf("modulo by zero")
		}
		return &object.Float{Value: math.Mod(a, b)}, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func opNeg(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	switch v := recv.(type) {
	case *object.Integer:
		return &object.Integer{Value: -v.Value}, nil
	case *object.Float:
		return &object.Float{Value: -v.Value}, nil
	}
	return nil, fmt.Errorf("cannot negate %s", recv.Type())
}

func opAbs(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	switch v := recv.(type) {
	case *object.Integer:
		if v.Value < 0 {
			return &object.Integer{Value: -v.Value}, nil
		}
		return v, nil
	case *object.Float:
		return &object.Float{Value: math.Abs(v.Value)}, nil
	}
	return nil, fmt.Errorf("abs of %s", recv.Type())
}

func opEq(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	return object.NativeBool(object.Equal(recv, args[0])), nil
}

func opNe(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	return object.NativeBool(!object.Equal(recv, args[0])), nil
}

// compare orders numbers, strings and date-times.
func compare(op string) MethodFunc {
	return func(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
		c, err := order(recv, args[0])
		if err != nil {
			return nil, typeMismatch(op, recv, args[0])
		}
		switch op {
		case "lt":
			return object.NativeBool(c < 0), nil
		case "le":
			return object.NativeBool(c <= 0), nil
		case "gt":
			return object.NativeBool(c > 0), nil
		default:
			return object.NativeBool(c >= 0), nil
		}
	}
}

// order returns -1, 0 or 1.
func order(a, b object.Object) (int, error) {
	if af, ok := object.Number(a); ok {
		if bf, ok := object.Number(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			}
			return 0, nil
		}
	}
	switch av := a.(type) {
	case *object.String:
		if bv, ok := b.(*object.String); ok {
			return strings.Compare(av.Value, bv.Value), nil
		}
	case *object.DateTime:
		if bv, ok := b.(*object.DateTime); ok {
			return av.Value.Compare(bv.Value), nil
		}
	}
	return 0, fmt.Errorf("cannot order %s and %s", a.Type(), b.Type())
}

func opAnd(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	return object.NativeBool(object.Truthy(recv) && object.Truthy(args[0])), nil
}

func opOr(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	return object.NativeBool(object.Truthy(recv) || object.Truthy(args[0])), nil
}

func opNot(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	return object.NativeBool(!object.Truthy(recv)), nil
}
