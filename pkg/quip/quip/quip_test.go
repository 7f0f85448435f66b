package quip

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sambeau/quip/pkg/quip/engine"
	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/registry"
)

type order struct {
	ID    string
	Total int
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		src  string
		opts []Option
		want string
	}{
		{"arithmetic", "(5 add 6) neg", nil, "-11"},
		{"several values", "(1) (2)", nil, "1 2"},
		{"subject", "$ add 1", []Option{WithSubject(41)}, "42"},
		{"struct subject", "$total mul 2", []Option{WithSubject(order{ID: "a1", Total: 21})}, "42"},
		{"locale", "1234567 format", []Option{WithLocale("de")}, "1.234.567"},
		{"default locale", "1234567 format", nil, "1,234,567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(registry.NullLogger())}, tt.opts...)
			res, err := Eval(tt.src, opts...)
			if err != nil {
				t.Fatalf("Eval(%q): %v", tt.src, err)
			}
			if got := res.String(); got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestResultValue(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"", "null"},
		{"7", "7"},
		{"(1) (2)", "(1, 2)"},
	}
	for _, tt := range tests {
		res, err := Eval(tt.src)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tt.src, err)
		}
		if got := res.Value().Inspect(); got != tt.want {
			t.Errorf("Eval(%q).Value() = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestEvalPrintGoesToLogger(t *testing.T) {
	buf := registry.NewBufferedLogger()
	if _, err := Eval("hello print world", WithLogger(buf)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"hello world"}, buf.Lines()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalWithRegistry(t *testing.T) {
	reg := registry.Default()
	reg.Bind("answer", 42)
	res, err := Eval("@answer", WithRegistry(reg))
	if err != nil {
		t.Fatal(err)
	}
	if res.String() != "42" {
		t.Errorf("got %q", res.String())
	}

	// the default registry knows nothing of answer
	if _, err := Eval("@answer"); !errors.Is(err, qerrors.Resolution) {
		t.Errorf("expected resolution error, got %v", err)
	}
}

func TestEvalFailure(t *testing.T) {
	res, err := Eval("1 bogus")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, qerrors.Resolution) {
		t.Errorf("error class = %v, want resolution", err)
	}
	if res == nil || len(res.Failures) != 1 {
		t.Fatalf("failures = %v, want one", res)
	}
}

func TestEvalInvalidLocale(t *testing.T) {
	if _, err := Eval("1", WithLocale("not a locale")); err == nil {
		t.Error("expected an invalid locale error")
	}
}

func TestEvalCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Eval("1 add 2", WithContext(ctx))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEvalTracer(t *testing.T) {
	var kinds []engine.EventKind
	tracer := engine.TracerFunc(func(ev engine.Event) { kinds = append(kinds, ev.Kind) })
	if _, err := Eval("1 add 2", WithTracer(tracer)); err != nil {
		t.Fatal(err)
	}
	want := []engine.EventKind{engine.EventReady, engine.EventEvaluated, engine.EventDone}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestNewContext(t *testing.T) {
	ctx, err := NewContext(WithSubject("abc"), WithLocale("fr"))
	if err != nil {
		t.Fatal(err)
	}
	subject, ok := ctx.Subject()
	if !ok || subject.Inspect() != "abc" {
		t.Errorf("subject = %v, %v", subject, ok)
	}
	if ctx.Locale.String() != "fr" {
		t.Errorf("locale = %s", ctx.Locale)
	}
}

func TestFormat(t *testing.T) {
	christmas := &object.DateTime{Value: time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)}
	tests := []struct {
		name   string
		v      object.Object
		locale string
		want   string
	}{
		{"int en", &object.Integer{Value: 1234567}, "en-US", "1,234,567"},
		{"int de", &object.Integer{Value: 1234567}, "de", "1.234.567"},
		{"float", &object.Float{Value: 1234.5}, "", "1,234.5"},
		{"string", &object.String{Value: "plain"}, "", "plain"},
		{"date", christmas, "", "December 25, 2024"},
		{"date de", christmas, "de-DE", "25. Dezember 2024"},
		{"tuple", &object.Tuple{Elements: []object.Object{&object.Integer{Value: 1000}, &object.String{Value: "a"}}}, "", "(1,000, a)"},
		{"bad locale", &object.Integer{Value: 1000}, "%%", "1,000"},
		{"bool", object.TRUE, "", "True"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.v, tt.locale); got != tt.want {
				t.Errorf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}
