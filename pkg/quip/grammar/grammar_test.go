package grammar

import (
	stderrors "errors"
	"strconv"
	"strings"
	"testing"

	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
	"github.com/sambeau/quip/pkg/quip/send"
)

type sel struct {
	name     string
	min, max int
	verbatim bool
}

func (s sel) Name() string      { return s.name }
func (s sel) MinArity() int     { return s.min }
func (s sel) MaxArity() int     { return s.max }
func (s sel) LongRunning() bool { return false }
func (s sel) Verbatim() bool    { return s.verbatim }
func (s sel) Invoke(object.Env, []object.Object) (object.Object, error) {
	return object.NULL, nil
}

// fakeResolver knows a handful of selectors per type.
type fakeResolver struct {
	selectors map[object.ObjectType][]sel
	objects   map[string]object.Object
	subject   object.Object
}

func newResolver() *fakeResolver {
	return &fakeResolver{
		selectors: map[object.ObjectType][]sel{
			object.INTEGER_OBJ: {{"add", 1, 1, false}, {"neg", 0, 0, false}, {"lt", 1, 1, false}},
			object.STRING_OBJ:  {{"length", 0, 0, false}, {"regmatch", 1, 1, true}, {"with", 1, 1, true}},
			object.TUPLE_OBJ:   {{"map", 1, 1, true}},
		},
		objects: map[string]object.Object{"answer": &object.Integer{Value: 42}},
	}
}

func (f *fakeResolver) ResolveObjectByName(name string) (object.Object, bool) {
	o, ok := f.objects[name]
	return o, ok
}

func (f *fakeResolver) ResolveObjectByType(typeName string) (object.Object, bool) {
	for _, o := range f.objects {
		if string(o.Type()) == typeName {
			return o, true
		}
	}
	return nil, false
}

func (f *fakeResolver) ObjectNames() []string { return []string{"answer"} }

func (f *fakeResolver) ResolveType(name string) (*object.TypeRef, bool) {
	switch name {
	case "Int", "String":
		return &object.TypeRef{Name: object.ObjectType(name)}, true
	}
	return nil, false
}

func (f *fakeResolver) ResolveLiteral(text string, quoted bool) object.Object {
	if !quoted {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &object.Integer{Value: n}
		}
	}
	return &object.String{Value: text}
}

func (f *fakeResolver) ResolveSelector(name string, receiver object.Object) (object.Selector, bool) {
	for _, s := range f.selectors[receiver.Type()] {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

func (f *fakeResolver) SelectorNames(receiver object.Object) []string {
	var names []string
	for _, s := range f.selectors[receiver.Type()] {
		names = append(names, s.name)
	}
	return names
}

func (f *fakeResolver) ResolveMember(subject object.Object, name string) (object.Object, bool) {
	if name == "size" {
		return &object.Integer{Value: 3}, true
	}
	return nil, false
}

func (f *fakeResolver) Subject() (object.Object, bool) {
	return f.subject, f.subject != nil
}

// classifyAll scans and classifies src, applying each transition, and returns
// the transitions as strings.
func classifyAll(t *testing.T, r Resolver, peek object.Object, src string) ([]string, error) {
	t.Helper()
	c := New(r, func() (object.Object, bool) { return peek, peek != nil })
	sc := scanner.New(src)
	st := send.NewStack()
	var got []string
	for {
		u, ok, err := sc.Next()
		if err != nil {
			return got, err
		}
		if !ok {
			return got, nil
		}
		tr, err := c.Classify(u, st)
		if err != nil {
			return got, err
		}
		if tr.Capture {
			sc.Capture()
		}
		got = append(got, tr.String())
		if _, err := st.Apply(tr); err != nil {
			return got, err
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		peek    object.Object
		subject object.Object
		want    string
	}{
		{"simple send", "1 add 2", nil, nil, "start 1 | selector add | argument 2"},
		{"chaining", "1 add 2 add 3", &object.Integer{Value: 3}, nil,
			"start 1 | selector add | argument 2 | chain add | argument 3"},
		{"literal after value starts a send", "1 add 2 3", &object.Integer{Value: 3}, nil,
			"start 1 | selector add | argument 2 | start 3"},
		{"block", "(5 add 6) neg", &object.Integer{Value: 11}, nil,
			"open | start 5 | selector add | argument 6 | close | chain neg"},
		{"quoted stays a string", "'9' length", nil, nil, "start 9 | selector length"},
		{"verbatim capture", "'9786' regmatch [0-9]+ (x)", nil, nil,
			"start 9786 | selector regmatch | argument [0-9]+ (x)"},
		{"object reference", "@answer add 1", nil, nil, "start 42 | selector add | argument 1"},
		{"object by type", "@Int neg", nil, nil, "start 42 | selector neg"},
		{"type name", "Int", nil, nil, "start Int"},
		{"modifiers", "1 ~!lt 2", nil, nil, "start 1 | selector ~!lt | argument 2"},
		{"subject", "$ add 1", nil, &object.Integer{Value: 7}, "start $ | selector add | argument 1"},
		{"subject member", "1 add $size", nil, &object.Integer{Value: 7}, "start 1 | selector add | argument $size"},
		{"subject selector", "1 add $neg", nil, &object.Integer{Value: 7}, "start 1 | selector add | nest neg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver()
			r.subject = tt.subject
			got, err := classifyAll(t, r, tt.peek, tt.input)
			if err != nil {
				t.Fatalf("classify %q: %v", tt.input, err)
			}
			if joined := strings.Join(got, " | "); joined != tt.want {
				t.Errorf("got  %s\nwant %s", joined, tt.want)
			}
		})
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		code   string
		column int
	}{
		{"unknown selector", "1 ad 2", "RESOLVE-0003", 3},
		{"value for selector", "1 2", "SYNTAX-0007", 3},
		{"quoted selector", "1 'add' 2", "SYNTAX-0007", 3},
		{"open for selector", "1 (add) 2", "SYNTAX-0005", 3},
		{"unknown object", "@answr neg", "RESOLVE-0001", 1},
		{"no object of type", "@Clock now", "RESOLVE-0002", 1},
		{"no subject", "$ add 1", "RESOLVE-0004", 1},
		{"type as argument", "1 add Int", "RESOLVE-0005", 7},
		{"type as selector", "1 Int", "RESOLVE-0005", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifyAll(t, newResolver(), nil, tt.input)
			var qe *qerrors.QuipError
			if !stderrors.As(err, &qe) {
				t.Fatalf("expected QuipError, got %v", err)
			}
			if qe.Code != tt.code || qe.Column != tt.column {
				t.Errorf("got %s at column %d (%s), want %s at column %d", qe.Code, qe.Column, qe.Message, tt.code, tt.column)
			}
		})
	}
}

func TestUnknownSelectorHint(t *testing.T) {
	_, err := classifyAll(t, newResolver(), nil, "'abc' lenght")
	var qe *qerrors.QuipError
	if !stderrors.As(err, &qe) {
		t.Fatalf("expected QuipError, got %v", err)
	}
	if len(qe.Hints) != 1 || !strings.Contains(qe.Hints[0], "length") {
		t.Errorf("Hints = %v", qe.Hints)
	}
}

func TestRawCaptureWithoutSelector(t *testing.T) {
	c := New(newResolver(), func() (object.Object, bool) { return nil, false })
	u := scanner.Unit{Text: "rest", Flags: scanner.Term | scanner.String | scanner.Ending | scanner.Argument}
	_, err := c.Classify(u, send.NewStack())
	if !stderrors.Is(err, &qerrors.QuipError{Code: "SYNTAX-0004"}) {
		t.Errorf("expected SYNTAX-0004, got %v", err)
	}
}

func TestVerbatimUnboundedEnds(t *testing.T) {
	r := newResolver()
	r.selectors[object.STRING_OBJ] = append(r.selectors[object.STRING_OBJ], sel{"words", 0, object.Unbounded, true})
	got, err := classifyAll(t, r, nil, "s words a b c")
	if err != nil {
		t.Fatal(err)
	}
	if joined := strings.Join(got, " | "); joined != "start s | selector words | argument a b c, end" {
		t.Errorf("got %s", joined)
	}
}
