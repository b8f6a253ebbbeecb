package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/mvp-joe/depsolver/internal/depsolver"
)

// ResultWriter writes closure and cycle runs to SQLite. Every run is
// written in a single transaction, one row per statement.
type ResultWriter struct {
	db     *sql.DB
	ownsDB bool // true if we opened the connection, false if shared
	now    func() time.Time
}

// NewResultWriter opens the database at path and creates the schema if
// needed.
func NewResultWriter(path string) (*ResultWriter, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &ResultWriter{db: db, ownsDB: true, now: time.Now}, nil
}

// NewResultWriterWithDB creates a ResultWriter using an existing database
// connection. The caller owns the connection and its schema.
func NewResultWriterWithDB(db *sql.DB) *ResultWriter {
	return &ResultWriter{db: db, now: time.Now}
}

// Close closes the database connection if owned by this writer.
func (w *ResultWriter) Close() error {
	if !w.ownsDB || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// WriteClosure stores a closure report. A non-nil solveErr marks the run
// failed; rep may then be nil. Returns the new run ID.
func (w *ResultWriter) WriteClosure(targets []depsolver.Target, rep *depsolver.Report, solveErr error) (string, error) {
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.String())
	}

	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	id, err := w.insertRun(tx, KindClosure, names, solveErr)
	if err != nil {
		return "", err
	}
	if rep != nil {
		if err := writeNodes(tx, id, rep.Nodes); err != nil {
			return "", err
		}
		if err := writeStubs(tx, id, rep.Stubs); err != nil {
			return "", err
		}
		if err := writeNotes(tx, id, rep); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit closure run: %w", err)
	}
	return id, nil
}

// WriteCycles stores a cycle analysis. Returns the new run ID.
func (w *ResultWriter) WriteCycles(a *cycles.Analysis) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis cannot be nil")
	}

	tx, err := w.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := w.insertRun(tx, KindCycles, nil, nil)
	if err != nil {
		return "", err
	}

	for i, c := range a.Cycles {
		_, err := sq.Insert("cycles").
			Columns("run_id", "position", "members").
			Values(id, i, strings.Join(c, "\n")).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert cycle %s: %w", c, err)
		}
	}

	for i, c := range a.Cuts {
		_, err := sq.Insert("cuts").
			Columns("run_id", "position", "from_component", "to_component", "kind", "member", "weight").
			Values(id, i, c.From, c.To, string(c.Kind), c.Member, c.Weight).
			RunWith(tx).
			Exec()
		if err != nil {
			return "", fmt.Errorf("failed to insert cut %s -> %s: %w", c.From, c.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit cycles run: %w", err)
	}
	return id, nil
}

// DeleteRun removes a run and, through cascades, everything it recorded.
func (w *ResultWriter) DeleteRun(id string) error {
	res, err := sq.Delete("runs").Where(sq.Eq{"run_id": id}).RunWith(w.db).Exec()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func (w *ResultWriter) insertRun(tx *sql.Tx, kind string, targets []string, runErr error) (string, error) {
	id := uuid.New().String()
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := sq.Insert("runs").
		Columns("run_id", "kind", "targets", "status", "error", "started_at").
		Values(id, kind, strings.Join(targets, "\n"), status, msg, w.now().UTC().Format(time.RFC3339Nano)).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

func writeNodes(tx *sql.Tx, id string, nodes []depsolver.NodeReport) error {
	for i, n := range nodes {
		_, err := sq.Insert("closure_nodes").
			Columns("run_id", "position", "handle", "kind", "file_path").
			Values(id, i, n.Handle, string(n.Kind), n.File).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert closure node %s: %w", n.Handle, err)
		}
	}
	return nil
}

func writeStubs(tx *sql.Tx, id string, stubs []depsolver.StubReport) error {
	for _, s := range stubs {
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode stub %s: %w", s.FQN, err)
		}
		_, err = sq.Insert("stubs").
			Columns("run_id", "fqn", "kind", "outer_fqn", "body").
			Values(id, s.FQN, string(s.Kind), s.Outer, string(body)).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert stub %s: %w", s.FQN, err)
		}
	}
	return nil
}

func writeNotes(tx *sql.Tx, id string, rep *depsolver.Report) error {
	for i, e := range rep.External {
		if err := insertNote(tx, id, noteExternal, i, e); err != nil {
			return err
		}
	}
	for i, m := range rep.Missing {
		if err := insertNote(tx, id, noteMissing, i, m); err != nil {
			return err
		}
	}
	for i, f := range rep.Fallbacks {
		body, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to encode fallback: %w", err)
		}
		if err := insertNote(tx, id, noteFallback, i, string(body)); err != nil {
			return err
		}
	}
	return nil
}

func insertNote(tx *sql.Tx, id, category string, position int, value string) error {
	_, err := sq.Insert("run_notes").
		Columns("run_id", "category", "position", "value").
		Values(id, category, position, value).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert %s note: %w", category, err)
	}
	return nil
}
