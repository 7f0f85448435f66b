package object

import (
	"fmt"
	"reflect"
	"time"
)

var (
	objectIface = reflect.TypeOf((*Object)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// FromGo converts a Go value to an Object. Values with no natural mapping are
// wrapped in a Host named after their Go type.
func FromGo(v any) Object {
	switch x := v.(type) {
	case nil:
		return NULL
	case Object:
		return x
	case bool:
		return NativeBool(x)
	case string:
		return &String{Value: x}
	case int:
		return &Integer{Value: int64(x)}
	case int64:
		return &Integer{Value: x}
	case int32:
		return &Integer{Value: int64(x)}
	case float64:
		return &Float{Value: x}
	case float32:
		return &Float{Value: float64(x)}
	case time.Time:
		return &DateTime{Value: x}
	case []any:
		elems := make([]Object, len(x))
		for i, e := range x {
			elems[i] = FromGo(e)
		}
		return &Tuple{Elements: elems}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Integer{Value: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Integer{Value: int64(rv.Uint())}
	case reflect.Float32, reflect.Float64:
		return &Float{Value: rv.Float()}
	case reflect.String:
		return &String{Value: rv.String()}
	case reflect.Bool:
		return NativeBool(rv.Bool())
	case reflect.Slice, reflect.Array:
		elems := make([]Object, rv.Len())
		for i := range elems {
			elems[i] = FromGo(rv.Index(i).Interface())
		}
		return &Tuple{Elements: elems}
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return NULL
		}
	}
	return &Host{TypeName: ObjectType(hostTypeName(rv.Type())), Value: v}
}

func hostTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// ToGo returns the natural Go value of an Object.
func ToGo(o Object) any {
	switch v := o.(type) {
	case nil, *Null:
		return nil
	case *Integer:
		return v.Value
	case *Float:
		return v.Value
	case *Boolean:
		return v.Value
	case *String:
		return v.Value
	case *DateTime:
		return v.Value
	case *TypeRef:
		return string(v.Name)
	case *Tuple:
		out := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = ToGo(e)
		}
		return out
	case *Host:
		return v.Value
	}
	return o
}

// Convert produces a reflect.Value of type t from o, for passing an operand to
// a reflected Go method.
func Convert(o Object, t reflect.Type) (reflect.Value, error) {
	if t.Implements(objectIface) && reflect.TypeOf(o).AssignableTo(t) {
		return reflect.ValueOf(o), nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := o.(*Integer); ok {
			return reflect.ValueOf(i.Value).Convert(t), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := o.(*Integer); ok && i.Value >= 0 {
			return reflect.ValueOf(uint64(i.Value)).Convert(t), nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := Number(o); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}
	case reflect.Bool:
		if b, ok := o.(*Boolean); ok {
			return reflect.ValueOf(b.Value), nil
		}
	case reflect.String:
		switch v := o.(type) {
		case *String:
			return reflect.ValueOf(v.Value).Convert(t), nil
		case *Integer, *Float, *Boolean:
			return reflect.ValueOf(v.Inspect()).Convert(t), nil
		}
	case reflect.Slice:
		if tup, ok := o.(*Tuple); ok {
			out := reflect.MakeSlice(t, len(tup.Elements), len(tup.Elements))
			for i, e := range tup.Elements {
				ev, err := Convert(e, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case reflect.Interface:
		if _, ok := o.(*Null); ok {
			return reflect.Zero(t), nil
		}
		gv := ToGo(o)
		if reflect.TypeOf(gv).Implements(t) {
			return reflect.ValueOf(gv), nil
		}
	}

	if t == timeType {
		if d, ok := o.(*DateTime); ok {
			return reflect.ValueOf(d.Value), nil
		}
	}
	if h, ok := o.(*Host); ok {
		hv := reflect.ValueOf(h.Value)
		if hv.Type().AssignableTo(t) {
			return hv, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s %s as %s", o.Type(), o.Inspect(), t)
}

// sameHost compares wrapped Go values without panicking on uncomparable types.
func sameHost(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		return av.IsValid() == bv.IsValid()
	}
	if av.Type() != bv.Type() {
		return false
	}
	if av.Comparable() {
		return av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}
