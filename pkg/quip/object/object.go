// Package object defines the runtime values quip expressions produce and
// consume, along with the Selector contract every resolvable operation meets.
package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ObjectType is the dynamic type tag of a value. Selectors are resolved
// against it.
type ObjectType string

const (
	INTEGER_OBJ  ObjectType = "Int"
	FLOAT_OBJ    ObjectType = "Float"
	BOOLEAN_OBJ  ObjectType = "Bool"
	STRING_OBJ   ObjectType = "String"
	NULL_OBJ     ObjectType = "Null"
	TUPLE_OBJ    ObjectType = "Tuple"
	DATETIME_OBJ ObjectType = "DateTime"
	TYPE_OBJ     ObjectType = "Type"
)

// Object represents all values in the language.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Integer represents integer objects
type Integer struct {
	Value int64
}

func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) Type() ObjectType { return INTEGER_OBJ }

// Float represents floating-point objects
type Float struct {
	Value float64
}

func (f *Float) Inspect() string  { return strconv.FormatFloat(f.Value, 'g', -1, 64) }
func (f *Float) Type() ObjectType { return FLOAT_OBJ }

// Boolean represents boolean objects
type Boolean struct {
	Value bool
}

func (b *Boolean) Inspect() string {
	if b.Value {
		return "True"
	}
	return "False"
}
func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }

// String represents string objects
type String struct {
	Value string
}

func (s *String) Inspect() string  { return s.Value }
func (s *String) Type() ObjectType { return STRING_OBJ }

// Null represents the absence of a value
type Null struct{}

func (n *Null) Inspect() string  { return "null" }
func (n *Null) Type() ObjectType { return NULL_OBJ }

// Tuple is an ordered, immutable sequence of values.
type Tuple struct {
	Elements []Object
}

func (t *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (t *Tuple) Inspect() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Inspect()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// DateTime wraps a point in time.
type DateTime struct {
	Value time.Time
}

func (d *DateTime) Type() ObjectType { return DATETIME_OBJ }
func (d *DateTime) Inspect() string {
	t := d.Value
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// TypeRef is a handle on a type, produced when an expression names a type.
// Selectors sent to it are the type's static methods.
type TypeRef struct {
	Name ObjectType
}

func (t *TypeRef) Type() ObjectType { return TYPE_OBJ }
func (t *TypeRef) Inspect() string  { return string(t.Name) }

// Host wraps a live Go value from the application's object graph. Its
// exported methods and fields are reachable by reflection.
type Host struct {
	TypeName ObjectType
	Value    any
}

func (h *Host) Type() ObjectType { return h.TypeName }
func (h *Host) Inspect() string {
	if s, ok := h.Value.(fmt.Stringer); ok {
		return s.String()
	}
	return "<" + string(h.TypeName) + ">"
}

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

// NativeBool returns the shared Boolean for b.
func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

// Truthy reports whether a value counts as true: False, null, zero, the empty
// string and the empty tuple are false; everything else is true.
func Truthy(o Object) bool {
	switch v := o.(type) {
	case nil, *Null:
		return false
	case *Boolean:
		return v.Value
	case *Integer:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *String:
		return v.Value != ""
	case *Tuple:
		return len(v.Elements) > 0
	default:
		return true
	}
}

// Equal compares two values structurally. Integers and floats compare by
// numeric value.
func Equal(a, b Object) bool {
	if af, ok := Number(a); ok {
		if bf, ok := Number(b); ok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *DateTime:
		bv, ok := b.(*DateTime)
		return ok && av.Value.Equal(bv.Value)
	case *TypeRef:
		bv, ok := b.(*TypeRef)
		return ok && av.Name == bv.Name
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Host:
		bv, ok := b.(*Host)
		return ok && sameHost(av.Value, bv.Value)
	}
	return false
}

// Number returns the numeric value of an Integer or Float.
func Number(o Object) (float64, bool) {
	switch v := o.(type) {
	case *Integer:
		return float64(v.Value), true
	case *Float:
		return v.Value, true
	}
	return 0, false
}
