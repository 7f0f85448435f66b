package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sambeau/quip/pkg/quip/object"
)

// Definitions is the content of a definitions file:
//
//	objects:
//	  answer: 42
//	  primes: [2, 3, 5, 7]
//	  launch: 2024-12-25
//	aliases:
//	  plus: add
type Definitions struct {
	Objects map[string]any    `yaml:"objects"`
	Aliases map[string]string `yaml:"aliases"`

	// Path is the file the definitions were read from, if any.
	Path string `yaml:"-"`
}

// LoadDefinitions reads a definitions file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	defs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("parsing definitions %s: %w", path, err)
	}
	defs.Path = path
	return defs, nil
}

// ParseDefinitions decodes definitions from YAML.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	for name, target := range defs.Aliases {
		if target == "" {
			return nil, fmt.Errorf("alias %q has no target", name)
		}
	}
	return &defs, nil
}

// Names returns the defined object names, sorted.
func (d *Definitions) Names() []string {
	names := make([]string, 0, len(d.Objects))
	for name := range d.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply binds every object and installs every alias. Objects and aliases
// installed by a previous Apply of prev that d no longer defines are removed,
// so a reloaded file replaces its earlier version.
func (d *Definitions) Apply(r *Registry, prev *Definitions) {
	if prev != nil {
		for name := range prev.Objects {
			if _, ok := d.Objects[name]; !ok {
				r.Unbind(name)
			}
		}
		for name := range prev.Aliases {
			if _, ok := d.Aliases[name]; !ok {
				r.unalias(name)
			}
		}
	}
	for name, v := range d.Objects {
		r.Bind(name, yamlValue(v))
	}
	for name, target := range d.Aliases {
		r.Alias(name, target)
	}
}

// yamlValue normalises decoded YAML for FromGo. Sequences become tuples,
// timestamps become DateTimes and mappings stay Host values whose keys are
// reachable as members of a Record.
func yamlValue(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = yamlValue(e)
		}
		return out
	case map[string]any:
		out := make(Record, len(x))
		for k, e := range x {
			out[k] = yamlValue(e)
		}
		return out
	case time.Time:
		return object.FromGo(x)
	}
	return v
}

// Record is a mapping from a definitions file. Its keys are members, so with
// a Record as subject $key reads a value.
type Record map[string]any

// Keys returns the record's keys, sorted.
func (rec Record) Keys() []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (rec Record) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range rec.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", k, object.FromGo(rec[k]).Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

func (r *Registry) unalias(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aliases, name)
}
