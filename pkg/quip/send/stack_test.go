package send

import (
	stderrors "errors"
	"testing"

	qerrors "github.com/sambeau/quip/pkg/quip/errors"
	"github.com/sambeau/quip/pkg/quip/object"
	"github.com/sambeau/quip/pkg/quip/scanner"
)

type sel struct {
	name     string
	min, max int
}

func (s sel) Name() string      { return s.name }
func (s sel) MinArity() int     { return s.min }
func (s sel) MaxArity() int     { return s.max }
func (s sel) LongRunning() bool { return false }
func (s sel) Verbatim() bool    { return false }
func (s sel) Invoke(object.Env, []object.Object) (object.Object, error) {
	return object.NULL, nil
}

var (
	add     = sel{"add", 1, 1}
	neg     = sel{"neg", 0, 0}
	between = sel{"between", 1, 2}
	tuple   = sel{"tuple", 0, object.Unbounded}
)

func num(n int64) Operand { return Val(&object.Integer{Value: n}) }

func start(o Operand) Step { return Step{Op: OpStart, Operand: o} }
func selector(s object.Selector) Step { return Step{Op: OpSelector, Selector: s} }
func arg(o Operand) Step { return Step{Op: OpArgument, Operand: o} }
func chain(s object.Selector) Step { return Step{Op: OpChain, Selector: s} }
func nest(s object.Selector) Step { return Step{Op: OpNest, Selector: s} }
func op(o Op) Step { return Step{Op: o} }
func unit(text string) scanner.Unit { return scanner.Unit{Text: text, Flags: scanner.Term} }
func tr(text string, steps ...Step) Transition {
	return Transition{Steps: steps, Unit: unit(text)}
}

// run applies transitions in order and returns the selector names of the
// completed sends, or the first error.
func run(st *Stack, ts ...Transition) ([]string, error) {
	var names []string
	for _, t := range ts {
		done, err := st.Apply(t)
		for _, s := range done {
			names = append(names, s.Selector.Name())
		}
		if err != nil {
			return names, err
		}
	}
	return names, nil
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApply(t *testing.T) {
	op1, op2, op3 := sel{"op1", 1, 1}, sel{"op2", 1, 1}, sel{"op3", 1, 1}

	tests := []struct {
		name string
		ts   []Transition
		want []string
	}{
		{
			name: "single send",
			ts:   []Transition{tr("1", start(num(1))), tr("add", selector(add)), tr("2", arg(num(2)))},
			want: []string{"add"},
		},
		{
			name: "chained send",
			ts: []Transition{
				tr("1", start(num(1))), tr("add", selector(add)), tr("2", arg(num(2))),
				tr("add", chain(add)), tr("3", arg(num(3))),
			},
			want: []string{"add", "add"},
		},
		{
			name: "placeholder ordering",
			ts: []Transition{
				tr("(", op(OpOpen)), tr("A", start(num(1))), tr("op1", selector(op1)), tr("B", arg(num(2))), tr(")", op(OpClose)),
				tr("op2", chain(op2)),
				tr("(", op(OpOpen)), tr("C", start(num(3))), tr("op3", selector(op3)), tr("D", arg(num(4))), tr(")", op(OpClose)),
			},
			want: []string{"op1", "op3", "op2"},
		},
		{
			name: "block then unary",
			ts: []Transition{
				tr("(", op(OpOpen)), tr("5", start(num(5))), tr("add", selector(add)), tr("6", arg(num(6))), tr(")", op(OpClose)),
				tr("neg", chain(neg)),
			},
			want: []string{"add", "neg"},
		},
		{
			name: "receiver only at end of input",
			ts:   []Transition{tr("42", start(num(42))), tr("", op(OpFinish))},
			want: []string{"self"},
		},
		{
			name: "receiver only in block",
			ts:   []Transition{tr("(", op(OpOpen)), tr("5", start(num(5))), tr(")", op(OpClose)), tr("neg", chain(neg))},
			want: []string{"self", "neg"},
		},
		{
			name: "implicit nested send",
			ts: []Transition{
				tr("1", start(num(1))), tr("add", selector(add)), tr("$add", nest(add)), tr("3", arg(num(3))),
			},
			want: []string{"add", "add"},
		},
		{
			name: "unbounded send waits for end",
			ts: []Transition{
				tr("1", start(num(1))), tr("tuple", selector(tuple)), tr("2", arg(num(2))), tr("3", arg(num(3))),
				tr("", op(OpFinish)),
			},
			want: []string{"tuple"},
		},
		{
			name: "block argument of unbounded send",
			ts: []Transition{
				tr("1", start(num(1))), tr("tuple", selector(tuple)),
				tr("(", op(OpOpen)), tr("2", start(num(2))), tr("neg", selector(neg)), tr(")", op(OpClose)),
				tr("", op(OpFinish)),
			},
			want: []string{"neg", "tuple"},
		},
		{
			name: "top-level block after a full send",
			ts: []Transition{
				tr("1", start(num(1))), tr("add", selector(add)), tr("2", arg(num(2))),
				tr("(", op(OpOpen)), tr("3", start(num(3))), tr(")", op(OpClose)), tr("", op(OpFinish)),
			},
			want: []string{"add", "self"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(NewStack(), tt.ts...)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if !equalNames(got, tt.want) {
				t.Errorf("completed %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		ts   []Transition
		code string
	}{
		{
			name: "too few arguments",
			ts:   []Transition{tr("x", start(num(1))), tr("between", selector(between)), tr("", op(OpFinish))},
			code: "ARITY-0001",
		},
		{
			name: "too few arguments in block",
			ts: []Transition{
				tr("(", op(OpOpen)), tr("x", start(num(1))), tr("between", selector(between)), tr(")", op(OpClose)),
			},
			code: "ARITY-0001",
		},
		{
			name: "second value in block",
			ts: []Transition{
				tr("(", op(OpOpen)), tr("1", start(num(1))), tr("add", selector(add)), tr("2", arg(num(2))),
				tr("3", start(num(3))),
			},
			code: "ARITY-0002",
		},
		{
			name: "value after a full top-level send",
			ts: []Transition{
				tr("1", start(num(1))), tr("add", selector(add)), tr("2", arg(num(2))),
				tr("3", start(num(3))),
			},
			code: "ARITY-0002",
		},
		{
			name: "nested send after a full top-level send",
			ts: []Transition{
				tr("5", start(num(5))), tr("neg", selector(neg)), tr("$neg", nest(neg)),
			},
			code: "ARITY-0002",
		},
		{
			name: "empty block",
			ts:   []Transition{tr("(", op(OpOpen)), tr(")", op(OpClose))},
			code: "SYNTAX-0006",
		},
		{
			name: "unbalanced close",
			ts:   []Transition{tr(")", op(OpClose))},
			code: "SYNTAX-0001",
		},
		{
			name: "finish inside block",
			ts:   []Transition{tr("1", start(num(1))), tr("add", selector(add)), tr("(", op(OpOpen)), tr("", op(OpFinish))},
			code: "SYNTAX-0003",
		},
		{
			name: "open where selector expected",
			ts:   []Transition{tr("1", start(num(1))), tr("(", op(OpOpen))},
			code: "SYNTAX-0005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(NewStack(), tt.ts...)
			var qe *qerrors.QuipError
			if !stderrors.As(err, &qe) {
				t.Fatalf("expected QuipError, got %v", err)
			}
			if qe.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", qe.Code, tt.code, qe.Message)
			}
		})
	}
}

func TestArityBoundary(t *testing.T) {
	tests := []struct {
		args int
		code string
	}{
		{0, "ARITY-0001"},
		{1, ""},
		{2, ""},
		{3, "ARITY-0002"},
	}
	for _, tt := range tests {
		ts := []Transition{tr("x", start(num(0))), tr("between", selector(between))}
		for i := 0; i < tt.args; i++ {
			// the classifier starts a new send once between is full
			step := arg(num(int64(i)))
			if i >= between.max {
				step = start(num(int64(i)))
			}
			ts = append(ts, tr("v", step))
		}
		ts = append(ts, tr("", op(OpFinish)))

		got, err := run(NewStack(), ts...)
		if tt.code == "" {
			if err != nil || !equalNames(got, []string{"between"}) {
				t.Errorf("%d arguments: %v, %v", tt.args, got, err)
			}
			continue
		}
		var qe *qerrors.QuipError
		if !stderrors.As(err, &qe) || qe.Code != tt.code {
			t.Errorf("%d arguments: error %v, want %s", tt.args, err, tt.code)
		}
	}

	// An unbounded selector absorbs every value.
	got, err := run(NewStack(),
		tr("x", start(num(0))), tr("tuple", selector(tuple)),
		tr("a", arg(num(1))), tr("b", arg(num(2))), tr("c", arg(num(3))), tr("", op(OpFinish)),
	)
	if err != nil || !equalNames(got, []string{"tuple"}) {
		t.Errorf("unbounded send: %v, %v", got, err)
	}

	st := NewStack()
	if _, err := run(st, tr("x", start(num(0))), tr("between", selector(between)), tr("a", arg(num(1))), tr("b", arg(num(2)))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if st.Expectation() != ExpectNothing {
		t.Errorf("expectation after full send = %s", st.Expectation())
	}
}

func TestExpectation(t *testing.T) {
	st := NewStack()
	steps := []struct {
		t    Transition
		want Expectation
	}{
		{tr("1", start(num(1))), ExpectSelector},
		{tr("add", selector(add)), ExpectArgument},
		{tr("(", op(OpOpen)), ExpectNothing},
		{tr("2", start(num(2))), ExpectSelector},
		{tr(")", op(OpClose)), ExpectNothing},
	}
	for i, s := range steps {
		if _, err := st.Apply(s.t); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := st.Expectation(); got != s.want {
			t.Errorf("step %d (%s): expectation %s, want %s", i, s.t, got, s.want)
		}
	}
	if st.Len() != 0 || st.Depth() != 0 || st.Produced() != 1 {
		t.Errorf("final stack: len %d depth %d produced %d", st.Len(), st.Depth(), st.Produced())
	}
}

func TestOwnerWaitsForBlock(t *testing.T) {
	st := NewStack()
	done, err := run(st,
		tr("1", start(num(1))), tr("add", selector(add)), tr("(", op(OpOpen)),
		tr("2", start(num(2))), tr("neg", selector(neg)),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !equalNames(done, []string{"neg"}) {
		t.Errorf("completed %v before ')', want only neg", done)
	}
	if st.Len() != 1 || st.Depth() != 1 {
		t.Errorf("len %d depth %d", st.Len(), st.Depth())
	}
}

func TestPlaceholderConsume(t *testing.T) {
	p := NewPlaceholder()
	if !p.Consume() {
		t.Fatal("first Consume should succeed")
	}
	if p.Consume() {
		t.Error("second Consume should fail")
	}
	if num(1).Consume() {
		t.Error("values are not placeholders")
	}
}

func TestSendString(t *testing.T) {
	s := &Send{Receiver: num(1), Selector: add, Args: []Operand{NewPlaceholder()}}
	if got := s.String(); got != "1 add <nested>" {
		t.Errorf("String() = %q", got)
	}
	trans := Transition{Steps: []Step{start(MemberRef("name")), selector(neg), op(OpEnd)}}
	if got := trans.String(); got != "start $name, selector neg, end" {
		t.Errorf("Transition.String() = %q", got)
	}
}
