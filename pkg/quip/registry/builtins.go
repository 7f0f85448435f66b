package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/sambeau/quip/pkg/quip/object"
)

// importedMethods are ambient functions available on every receiver.
var importedMethods = MethodRegistry{
	"print": {Fn: builtinPrint, Arity: "0+", Description: "Log the receiver and any arguments; returns the receiver"},
	"type":  {Fn: builtinType, Arity: "0", Description: "The receiver's type handle"},
	"tuple": {Fn: builtinTuple, Arity: "0+", Description: "A tuple of the receiver and the arguments"},
	"sleep": {Fn: builtinSleep, Arity: "0", LongRunning: true, Description: "Pause for the receiver's number of milliseconds; returns the receiver"},
	"with":  {Fn: builtinWith, Arity: "1", Verbatim: true, Description: "Evaluate the rest of the input with the receiver as subject ($)"},
}

func builtinPrint(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	values := make([]any, 0, len(args)+1)
	values = append(values, recv.Inspect())
	for _, a := range args {
		values = append(values, a.Inspect())
	}
	ctx.logger().LogLine(values...)
	return recv, nil
}

func builtinType(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	return &object.TypeRef{Name: recv.Type()}, nil
}

func builtinTuple(recv object.Object, args []object.Object, _ *Context) (object.Object, error) {
	elems := make([]object.Object, 0, len(args)+1)
	elems = append(elems, recv)
	elems = append(elems, args...)
	return &object.Tuple{Elements: elems}, nil
}

func builtinSleep(recv object.Object, _ []object.Object, _ *Context) (object.Object, error) {
	ms, ok := object.Number(recv)
	if !ok || ms < 0 {
		return nil, fmt.Errorf("sleep needs a non-negative number of milliseconds, got %s", recv.Type())
	}
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
	return recv, nil
}

func builtinWith(recv object.Object, args []object.Object, ctx *Context) (object.Object, error) {
	if ctx == nil {
		return nil, errNoContext
	}
	body, ok := args[0].(*object.String)
	if !ok {
		return nil, fmt.Errorf("with needs source text, got %s", args[0].Type())
	}
	return ctx.Run(body.Value, recv)
}

var errNoContext = errors.New("nested evaluation needs a run context")
