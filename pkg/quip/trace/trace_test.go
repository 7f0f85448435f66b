package trace

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sambeau/quip/pkg/quip/engine"
	"github.com/sambeau/quip/pkg/quip/registry"
)

func openTemp(t *testing.T, maxRuns int) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "trace.db"), MaxRuns: maxRuns})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// record runs source under a new trace run and returns the run's id.
func record(t *testing.T, s *Store, source string) (string, error) {
	t.Helper()
	run, err := s.Begin(source)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	ctx := registry.NewContext(nil)
	_, runErr := engine.New(source).RunContext(context.Background(), ctx, engine.WithTracer(run))
	if err := run.End(runErr); err != nil {
		t.Fatalf("End: %v", err)
	}
	return run.ID, runErr
}

func TestRecordSteps(t *testing.T) {
	s := openTemp(t, 0)
	id, err := record(t, s, "1 add 2 neg")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	steps, err := s.Steps(id)
	if err != nil {
		t.Fatal(err)
	}
	want := []Step{
		{N: 1, Seq: 1, Phase: "ready", Selector: "add", Operands: []string{"1", "2"}},
		{N: 2, Seq: 1, Phase: "evaluated", Selector: "add", Operands: []string{"1", "2"}, Result: "3"},
		{N: 3, Seq: 2, Phase: "ready", Selector: "neg", Operands: []string{"3"}},
		{N: 4, Seq: 2, Phase: "evaluated", Selector: "neg", Operands: []string{"3"}, Result: "-3"},
		{N: 5, Phase: "done", Result: "-3"},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	run, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusOK || run.Source != "1 add 2 neg" || run.Error != "" {
		t.Errorf("run = %+v", run)
	}
	if run.Finished.Before(run.Started) {
		t.Errorf("finished %v before started %v", run.Finished, run.Started)
	}
}

func TestRecordLongRunning(t *testing.T) {
	s := openTemp(t, 0)
	id, err := record(t, s, "0 sleep")
	if err != nil {
		t.Fatal(err)
	}
	steps, err := s.Steps(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) == 0 || !steps[0].LongRunning {
		t.Errorf("sleep step not flagged long-running: %+v", steps)
	}
}

func TestRecordFailure(t *testing.T) {
	s := openTemp(t, 0)
	id, err := record(t, s, "1 add 2 bogus")
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	run, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != StatusFailed {
		t.Errorf("status = %q, want %q", run.Status, StatusFailed)
	}
	if !strings.Contains(run.Error, "bogus") {
		t.Errorf("error %q does not name the selector", run.Error)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	s := openTemp(t, 0)
	for _, src := range []string{"1", "2", "3"} {
		if _, err := record(t, s, src); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.Runs(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Started.Before(runs[1].Started) {
		t.Errorf("runs not newest first: %v then %v", runs[0].Started, runs[1].Started)
	}

	all, err := s.Runs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs, want 3", len(all))
	}
}

func TestPrune(t *testing.T) {
	s := openTemp(t, 2)
	for _, src := range []string{"1", "2", "3", "4"} {
		if _, err := record(t, s, src); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := s.Runs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("kept %d runs, want 2", len(runs))
	}
}

func TestGetUnknown(t *testing.T) {
	s := openTemp(t, 0)
	if _, err := s.Get("missing"); err == nil || !strings.Contains(err.Error(), "no run") {
		t.Errorf("err = %v", err)
	}
}

func TestExport(t *testing.T) {
	s := openTemp(t, 0)
	id, err := record(t, s, "(5 add 6) neg")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := s.Export(&buf, id); err != nil {
		t.Fatalf("Export: %v", err)
	}
	// gzip magic
	if b := buf.Bytes(); len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		t.Fatal("export is not gzip")
	}

	run, steps, err := ReadExport(&buf)
	if err != nil {
		t.Fatalf("ReadExport: %v", err)
	}
	if run.ID != id || run.Status != StatusOK {
		t.Errorf("run = %+v", run)
	}
	want, err := s.Steps(id)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("exported steps mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown driver", Config{Driver: "oracle"}, "unknown trace driver"},
		{"postgres without dsn", Config{Driver: DriverPostgres}, "needs a dsn"},
		{"mysql without dsn", Config{Driver: DriverMySQL}, "needs a dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Open err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	if got := pg.rebind("UPDATE runs SET a = ?, b = ? WHERE id = ?"); got != "UPDATE runs SET a = $1, b = $2 WHERE id = $3" {
		t.Errorf("postgres rebind = %q", got)
	}
	my := &Store{driver: DriverMySQL}
	if got := my.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("mysql rebind = %q", got)
	}
}
