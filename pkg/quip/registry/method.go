package registry

import (
	"sort"

	"github.com/sambeau/quip/pkg/quip/object"
)

// MethodFunc is the signature of every registered operation. receiver is the
// send's receiver; ctx is nil when a selector is invoked outside a run.
type MethodFunc func(receiver object.Object, args []object.Object, ctx *Context) (object.Object, error)

// MethodEntry defines a single method with its implementation and metadata.
// It is the single source of truth for both dispatch and introspection.
type MethodEntry struct {
	Fn          MethodFunc
	Arity       string // "0", "1", "0-1", "1+", "2", etc.
	Description string
	LongRunning bool
	Verbatim    bool
}

// MethodRegistry maps method names to their entries for a type.
type MethodRegistry map[string]MethodEntry

// Names returns a sorted list of method names in this registry.
func (r MethodRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the method entry for the given name, if it exists.
func (r MethodRegistry) Get(name string) (MethodEntry, bool) {
	entry, ok := r[name]
	return entry, ok
}

// MethodInfo describes a method for introspection.
type MethodInfo struct {
	Name        string `json:"name"`
	Arity       string `json:"arity"`
	Description string `json:"description"`
	Variant     string `json:"variant"`
}

// ToMethodInfos converts the registry to a slice of MethodInfo, sorted by name.
func (r MethodRegistry) ToMethodInfos(v Variant) []MethodInfo {
	methods := make([]MethodInfo, 0, len(r))
	for name, entry := range r {
		methods = append(methods, MethodInfo{
			Name:        name,
			Arity:       entry.Arity,
			Description: entry.Description,
			Variant:     v.String(),
		})
	}
	sort.Slice(methods, func(i, j int) bool {
		return methods[i].Name < methods[j].Name
	})
	return methods
}

// Variant is where a resolved selector came from, in resolution priority order.
type Variant uint8

const (
	TypeBound Variant = iota
	BuiltinOperator
	Imported
	ReflectedInstance
)

func (v Variant) String() string {
	switch v {
	case TypeBound:
		return "type-bound"
	case BuiltinOperator:
		return "operator"
	case Imported:
		return "imported"
	case ReflectedInstance:
		return "reflected"
	default:
		return "unknown"
	}
}

// Selector is an object.Selector that knows its Variant.
type Selector interface {
	object.Selector
	Variant() Variant
}

// entrySelector adapts a MethodEntry to object.Selector.
type entrySelector struct {
	name     string
	entry    MethodEntry
	variant  Variant
	min, max int
}

func newEntrySelector(name string, entry MethodEntry, v Variant) *entrySelector {
	lo, hi := object.ParseArity(entry.Arity)
	return &entrySelector{name: name, entry: entry, variant: v, min: lo, max: hi}
}

func (s *entrySelector) Name() string      { return s.name }
func (s *entrySelector) MinArity() int     { return s.min }
func (s *entrySelector) MaxArity() int     { return s.max }
func (s *entrySelector) LongRunning() bool { return s.entry.LongRunning }
func (s *entrySelector) Verbatim() bool    { return s.entry.Verbatim }
func (s *entrySelector) Variant() Variant  { return s.variant }

func (s *entrySelector) Invoke(env object.Env, operands []object.Object) (object.Object, error) {
	return s.entry.Fn(operands[0], operands[1:], contextOf(env))
}

// contextOf finds the registry Context behind env. Wrappers that embed a
// *Context expose it through Base.
func contextOf(env object.Env) *Context {
	switch e := env.(type) {
	case *Context:
		return e
	case interface{ Base() *Context }:
		return e.Base()
	}
	return nil
}
