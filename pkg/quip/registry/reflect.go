package registry

import (
	"fmt"
	"reflect"
	"sort"

	"golang.org/x/text/cases"

	"github.com/sambeau/quip/pkg/quip/object"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// foldName returns the case-folded form used to match Go method names. A
// Caser is stateful, so each call gets its own.
func foldName(s string) string {
	return cases.Fold().String(s)
}

// target returns the Go value reflection inspects for receiver.
func (r *Registry) target(receiver object.Object) (reflect.Value, bool) {
	if h, ok := receiver.(*object.Host); ok {
		if h.Value == nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(h.Value), true
	}
	if shim, ok := r.shims[receiver.Type()]; ok {
		return reflect.ValueOf(shim(receiver)), true
	}
	return reflect.Value{}, false
}

// reflected finds an exported method, or for a Host an exported struct field,
// whose case-folded name matches.
func (r *Registry) reflected(name string, receiver object.Object) (Selector, bool) {
	v, ok := r.target(receiver)
	if !ok {
		return nil, false
	}
	want := foldName(name)

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if foldName(m.Name) == want {
			return newMethodSelector(r, name, m.Name, m.Type), true
		}
	}

	if _, isHost := receiver.(*object.Host); isHost {
		st := t
		for st.Kind() == reflect.Pointer {
			st = st.Elem()
		}
		if st.Kind() == reflect.Struct {
			for i := 0; i < st.NumField(); i++ {
				f := st.Field(i)
				if f.IsExported() && foldName(f.Name) == want {
					return &fieldSelector{name: name, field: f.Name}, true
				}
			}
		}
	}
	return nil, false
}

func (r *Registry) reflectedNames(receiver object.Object) []string {
	v, ok := r.target(receiver)
	if !ok {
		return nil
	}
	var names []string
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, foldName(t.Method(i).Name))
	}
	sort.Strings(names)
	return names
}

// methodSelector calls an exported Go method on the receiver's reflection
// target. Its arity comes from the method's signature; variadic methods are
// unbounded.
type methodSelector struct {
	reg      *Registry
	name     string
	method   string
	typ      reflect.Type // method type including the receiver
	min, max int
}

func newMethodSelector(reg *Registry, name, method string, typ reflect.Type) *methodSelector {
	in := typ.NumIn() - 1
	s := &methodSelector{reg: reg, name: name, method: method, typ: typ, min: in, max: in}
	if typ.IsVariadic() {
		s.min = in - 1
		s.max = object.Unbounded
	}
	return s
}

func (s *methodSelector) Name() string      { return s.name }
func (s *methodSelector) MinArity() int     { return s.min }
func (s *methodSelector) MaxArity() int     { return s.max }
func (s *methodSelector) LongRunning() bool { return false }
func (s *methodSelector) Verbatim() bool    { return false }
func (s *methodSelector) Variant() Variant  { return ReflectedInstance }

func (s *methodSelector) Invoke(_ object.Env, operands []object.Object) (object.Object, error) {
	s.reg.mu.RLock()
	v, ok := s.reg.target(operands[0])
	s.reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s has no Go methods", operands[0].Type())
	}
	m := v.MethodByName(s.method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%s has no method %s", operands[0].Type(), s.method)
	}

	args := operands[1:]
	mt := m.Type()
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			pt = mt.In(mt.NumIn() - 1).Elem()
		} else {
			pt = mt.In(i)
		}
		av, err := object.Convert(a, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in[i] = av
	}

	return fromResults(m.Call(in))
}

// fromResults maps a Go method's results to one value. A trailing error is
// returned as the failure; no results is null; several are a tuple.
func fromResults(out []reflect.Value) (object.Object, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if !out[n-1].IsNil() {
			return nil, out[n-1].Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return object.NULL, nil
	case 1:
		return object.FromGo(out[0].Interface()), nil
	}
	elems := make([]object.Object, len(out))
	for i, o := range out {
		elems[i] = object.FromGo(o.Interface())
	}
	return &object.Tuple{Elements: elems}, nil
}

// fieldSelector reads an exported field of a Host struct.
type fieldSelector struct {
	name  string
	field string
}

func (s *fieldSelector) Name() string      { return s.name }
func (s *fieldSelector) MinArity() int     { return 0 }
func (s *fieldSelector) MaxArity() int     { return 0 }
func (s *fieldSelector) LongRunning() bool { return false }
func (s *fieldSelector) Verbatim() bool    { return false }
func (s *fieldSelector) Variant() Variant  { return ReflectedInstance }

func (s *fieldSelector) Invoke(_ object.Env, operands []object.Object) (object.Object, error) {
	v, ok := member(operands[0], s.field)
	if !ok {
		return nil, fmt.Errorf("%s has no field %s", operands[0].Type(), s.field)
	}
	return v, nil
}

// member reads a named part of a Host: an exported struct field, matched
// case-insensitively, or a key of a map with string keys.
func member(v object.Object, name string) (object.Object, bool) {
	h, ok := v.(*object.Host)
	if !ok || h.Value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(h.Value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		want := foldName(name)
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.IsExported() && foldName(f.Name) == want {
				return object.FromGo(rv.Field(i).Interface()), true
			}
		}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if mv.IsValid() {
			return object.FromGo(mv.Interface()), true
		}
	}
	return nil, false
}
