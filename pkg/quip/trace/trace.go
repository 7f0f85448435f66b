// Package trace persists the step events of runs to a SQL database so that a
// run can be listed, inspected and exported after the fact.
package trace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO required)

	"github.com/sambeau/quip/pkg/quip/engine"
	"github.com/sambeau/quip/pkg/quip/object"
)

// Drivers the store can open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DefaultPath is the SQLite file used when no path is configured.
const DefaultPath = "quip_trace.db"

// Config selects and configures the database.
type Config struct {
	Driver  string // sqlite (default), postgres or mysql
	DSN     string // connection string for postgres and mysql
	Path    string // database file for sqlite
	MaxRuns int    // oldest runs beyond this are pruned; 0 keeps everything
}

// Store records runs and their steps.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	driver  string
	maxRuns int
}

// RunInfo is one recorded run.
type RunInfo struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Step is one recorded event.
type Step struct {
	N           int      `json:"n"`
	Seq         int      `json:"seq"`
	Phase       string   `json:"phase"`
	Selector    string   `json:"selector,omitempty"`
	Operands    []string `json:"operands,omitempty"`
	Result      string   `json:"result,omitempty"`
	LongRunning bool     `json:"long_running,omitempty"`
}

// Open connects to the configured database and creates the schema.
func Open(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var dsn string
	switch driver {
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultPath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating trace directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case DriverPostgres, DriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("trace driver %s needs a dsn", driver)
		}
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unknown trace driver %q (want sqlite, postgres or mysql)", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to trace database: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	s := &Store{db: db, driver: driver, maxRuns: cfg.MaxRuns}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace schema: %w", err)
	}
	return s, nil
}

// createSchema uses only column types all three drivers accept. Times are
// stored as Unix milliseconds.
func (s *Store) createSchema() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			source TEXT NOT NULL,
			started BIGINT NOT NULL,
			finished BIGINT NOT NULL,
			status VARCHAR(16) NOT NULL,
			error TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id VARCHAR(36) NOT NULL,
			n INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			phase VARCHAR(16) NOT NULL,
			selector VARCHAR(255) NOT NULL,
			operands TEXT NOT NULL,
			result TEXT NOT NULL,
			long_running INTEGER NOT NULL,
			PRIMARY KEY (run_id, n)
		)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *Store) exec(query string, args ...any) error {
	_, err := s.db.Exec(s.rebind(query), args...)
	return err
}

// Begin records the start of a run of source. The returned Run is the
// run's engine.Tracer.
func (s *Store) Begin(source string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prune(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] trace pruning failed: %v\n", err)
	}

	run := &Run{store: s, ID: uuid.NewString(), Source: source, Started: time.Now()}
	err := s.exec(`INSERT INTO runs (id, source, started, finished, status, error) VALUES (?, ?, ?, 0, ?, '')`,
		run.ID, source, run.Started.UnixMilli(), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

// prune deletes the oldest runs beyond maxRuns, leaving room for one more.
// Must be called with lock held.
func (s *Store) prune() error {
	if s.maxRuns <= 0 {
		return nil
	}
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return err
	}
	excess := total - s.maxRuns + 1
	if excess <= 0 {
		return nil
	}
	rows, err := s.db.Query(s.rebind("SELECT id FROM runs ORDER BY started ASC, id ASC LIMIT ?"), excess)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.exec("DELETE FROM steps WHERE run_id = ?", id); err != nil {
			return err
		}
		if err := s.exec("DELETE FROM runs WHERE id = ?", id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) record(runID string, st Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	operands, err := json.Marshal(st.Operands)
	if err != nil {
		return err
	}
	long := 0
	if st.LongRunning {
		long = 1
	}
	return s.exec(`INSERT INTO steps (run_id, n, seq, phase, selector, operands, result, long_running)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, st.N, st.Seq, st.Phase, st.Selector, string(operands), st.Result, long)
}

func (s *Store) finish(runID, status, msg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec("UPDATE runs SET finished = ?, status = ?, error = ? WHERE id = ?",
		at.UnixMilli(), status, msg, runID)
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(s.rebind(`
		SELECT id, source, started, finished, status, error
		FROM runs
		ORDER BY started DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(runID string) (RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(s.rebind("SELECT id, source, started, finished, status, error FROM runs WHERE id = ?"), runID)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunInfo{}, fmt.Errorf("no run with id %s", runID)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunInfo, error) {
	var r RunInfo
	var started, finished int64
	if err := sc.Scan(&r.ID, &r.Source, &started, &finished, &r.Status, &r.Error); err != nil {
		if err == sql.ErrNoRows {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	r.Started = time.UnixMilli(started)
	if finished > 0 {
		r.Finished = time.UnixMilli(finished)
	}
	return r, nil
}

// Steps returns the recorded events of a run in order.
func (s *Store) Steps(runID string) ([]Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(s.rebind(`
		SELECT n, seq, phase, selector, operands, result, long_running
		FROM steps
		WHERE run_id = ?
		ORDER BY n ASC`), runID)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var st Step
		var operands string
		var long int
		if err := rows.Scan(&st.N, &st.Seq, &st.Phase, &st.Selector, &operands, &st.Result, &long); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		if err := json.Unmarshal([]byte(operands), &st.Operands); err != nil {
			return nil, fmt.Errorf("decoding operands: %w", err)
		}
		st.LongRunning = long != 0
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Run is one run being recorded.
type Run struct {
	store   *Store
	ID      string
	Source  string
	Started time.Time

	mu  sync.Mutex
	n   int
	err error
}

var _ engine.Tracer = (*Run)(nil)

// Trace records ev. The first write error is kept and returned by End.
func (r *Run) Trace(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	if r.err != nil {
		return
	}
	if err := r.store.record(r.ID, stepOf(r.n, ev)); err != nil {
		r.err = fmt.Errorf("recording step %d: %w", r.n, err)
	}
}

// End records the outcome of the run. runErr is the run's own failure, if
// any; the returned error is a failure to record.
func (r *Run) End(runErr error) error {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	if err := r.store.finish(r.ID, status, msg, time.Now()); err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func stepOf(n int, ev engine.Event) Step {
	st := Step{N: n, Phase: ev.Kind.String()}
	if ev.Call != nil {
		st.Seq = ev.Call.Seq
		st.LongRunning = ev.Call.LongRunning
		if ev.Call.Selector != nil {
			st.Selector = ev.Call.Selector.Name()
		}
		st.Operands = inspectAll(ev.Call.Operands)
	}
	switch {
	case ev.Result != nil:
		st.Result = ev.Result.Inspect()
	case ev.Kind == engine.EventDone:
		st.Result = strings.Join(inspectAll(ev.Values), " ")
	}
	return st
}

func inspectAll(values []object.Object) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Inspect()
	}
	return out
}
