// Package registry is the default resolution context for quip runs.
//
// A Registry holds everything names resolve to: the value types, the methods
// bound to each type, static methods on type handles, the builtin operators,
// imported ambient functions, bound objects and reflection shims. Selectors are
// resolved in a fixed priority order (type-bound, operator, imported,
// reflected) so a type can always override a generic operation.
package registry

import (
	"sort"
	"sync"

	"github.com/sambeau/quip/pkg/quip/object"
)

// TypeObjectType names the methods every type handle answers to.
const TypeObjectType object.ObjectType = object.TYPE_OBJ

// Registry is safe for concurrent use; definitions may be reloaded while runs
// are in flight.
type Registry struct {
	mu        sync.RWMutex
	types     map[object.ObjectType]bool
	methods   map[object.ObjectType]MethodRegistry
	statics   map[object.ObjectType]MethodRegistry
	operators MethodRegistry
	imported  MethodRegistry
	aliases   map[string]string
	objects   map[string]object.Object
	shims     map[object.ObjectType]func(object.Object) any
}

// New returns an empty registry that knows only the builtin value types.
func New() *Registry {
	r := &Registry{
		types:     make(map[object.ObjectType]bool),
		methods:   make(map[object.ObjectType]MethodRegistry),
		statics:   make(map[object.ObjectType]MethodRegistry),
		operators: make(MethodRegistry),
		imported:  make(MethodRegistry),
		aliases:   make(map[string]string),
		objects:   make(map[string]object.Object),
		shims:     make(map[object.ObjectType]func(object.Object) any),
	}
	for _, t := range []object.ObjectType{
		object.INTEGER_OBJ, object.FLOAT_OBJ, object.BOOLEAN_OBJ, object.STRING_OBJ,
		object.NULL_OBJ, object.TUPLE_OBJ, object.DATETIME_OBJ, object.TYPE_OBJ,
	} {
		r.types[t] = true
	}
	return r
}

// Default returns a registry with every builtin installed.
func Default() *Registry {
	r := New()
	r.RegisterOperators(operatorMethods)
	for name, target := range operatorAliases {
		r.Alias(name, target)
	}
	r.RegisterImported(importedMethods)
	r.Register(object.STRING_OBJ, stringMethods)
	r.Register(object.INTEGER_OBJ, numberMethods)
	r.Register(object.FLOAT_OBJ, numberMethods)
	r.Register(object.DATETIME_OBJ, dateTimeMethods)
	r.Register(object.TUPLE_OBJ, tupleMethods)
	r.Register(TypeObjectType, typeMethods)
	for t, m := range staticMethods {
		r.RegisterStatics(t, m)
	}
	r.Shim(object.STRING_OBJ, func(o object.Object) any {
		return stringShim(o.(*object.String).Value)
	})
	return r
}

// Register adds type-bound methods for t, declaring t as a type if needed.
func (r *Registry) Register(t object.ObjectType, methods MethodRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = true
	r.methods[t] = merge(r.methods[t], methods)
}

// RegisterStatics adds methods answered by the handle of type t.
func (r *Registry) RegisterStatics(t object.ObjectType, methods MethodRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = true
	r.statics[t] = merge(r.statics[t], methods)
}

// RegisterOperators adds builtin operators, available on every receiver.
func (r *Registry) RegisterOperators(methods MethodRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators = merge(r.operators, methods)
}

// RegisterImported adds ambient functions, available on every receiver.
func (r *Registry) RegisterImported(methods MethodRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imported = merge(r.imported, methods)
}

// Shim installs a reflection target for values of type t: the exported
// methods of the returned Go value become reflected selectors of t.
func (r *Registry) Shim(t object.ObjectType, shim func(object.Object) any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shims[t] = shim
}

// Alias makes name resolve as target.
func (r *Registry) Alias(name, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = target
}

// Bind makes v reachable as @name. Go values are converted with FromGo; a
// Host value declares its type.
func (r *Registry) Bind(name string, v any) {
	obj := object.FromGo(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[name] = obj
	if _, ok := obj.(*object.Host); ok {
		r.types[obj.Type()] = true
	}
}

// Unbind removes @name.
func (r *Registry) Unbind(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, name)
}

func merge(dst, src MethodRegistry) MethodRegistry {
	if dst == nil {
		dst = make(MethodRegistry, len(src))
	}
	for name, entry := range src {
		dst[name] = entry
	}
	return dst
}

// Object returns the object bound to name.
func (r *Registry) Object(name string) (object.Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.objects[name]
	return obj, ok
}

// ObjectOfType returns the first bound object, by name, whose type is t.
func (r *Registry) ObjectOfType(t object.ObjectType) (object.Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.objectNames() {
		if obj := r.objects[name]; obj.Type() == t {
			return obj, true
		}
	}
	return nil, false
}

// ObjectNames returns the bound object names, sorted.
func (r *Registry) ObjectNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objectNames()
}

func (r *Registry) objectNames() []string {
	names := make([]string, 0, len(r.objects))
	for name := range r.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Type returns the handle for a declared type name.
func (r *Registry) Type(name string) (*object.TypeRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t := object.ObjectType(name)
	if !r.types[t] {
		return nil, false
	}
	return &object.TypeRef{Name: t}, true
}

// Types returns the declared type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for t := range r.types {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

// Methods returns the type-bound methods of t.
func (r *Registry) Methods(t object.ObjectType) MethodRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.methods[t]
}

// Statics returns the static methods of t's handle.
func (r *Registry) Statics(t object.ObjectType) MethodRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statics[t]
}

// Operators returns the builtin operators.
func (r *Registry) Operators() MethodRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators
}

// Imported returns the ambient functions.
func (r *Registry) Imported() MethodRegistry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.imported
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Selector resolves name against receiver, trying each variant in priority
// order. Aliases are followed once.
func (r *Registry) Selector(name string, receiver object.Object) (Selector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sel, ok := r.resolve(name, receiver); ok {
		return sel, true
	}
	if target, ok := r.aliases[name]; ok {
		return r.resolve(target, receiver)
	}
	return nil, false
}

func (r *Registry) resolve(name string, receiver object.Object) (Selector, bool) {
	if ref, ok := receiver.(*object.TypeRef); ok {
		if entry, ok := r.statics[ref.Name].Get(name); ok {
			return newEntrySelector(name, entry, TypeBound), true
		}
	}
	if entry, ok := r.methods[receiver.Type()].Get(name); ok {
		return newEntrySelector(name, entry, TypeBound), true
	}
	if entry, ok := r.operators.Get(name); ok {
		return newEntrySelector(name, entry, BuiltinOperator), true
	}
	if entry, ok := r.imported.Get(name); ok {
		return newEntrySelector(name, entry, Imported), true
	}
	return r.reflected(name, receiver)
}

// SelectorNames lists every name receiver answers to, sorted and without
// duplicates. Operator symbols are included; modifier forms are not.
func (r *Registry) SelectorNames(receiver object.Object) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			seen[n] = true
		}
	}
	if ref, ok := receiver.(*object.TypeRef); ok {
		add(r.statics[ref.Name].Names()...)
	}
	add(r.methods[receiver.Type()].Names()...)
	add(r.operators.Names()...)
	add(r.imported.Names()...)
	for alias := range r.aliases {
		add(alias)
	}
	add(r.reflectedNames(receiver)...)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
