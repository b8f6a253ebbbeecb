package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mvp-joe/depsolver/internal/cycles"
	"github.com/mvp-joe/depsolver/internal/decl"
	"github.com/mvp-joe/depsolver/internal/depsolver"
)

// ErrRunNotFound means no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// ResultReader reads persisted runs.
type ResultReader struct {
	db *sql.DB
}

// NewResultReader creates a ResultReader over a shared connection.
func NewResultReader(db *sql.DB) *ResultReader {
	return &ResultReader{db: db}
}

var runColumns = []string{"run_id", "kind", "targets", "status", "error", "started_at"}

// Runs returns every run of the given kind, oldest first. An empty kind
// returns all runs.
func (r *ResultReader) Runs(kind string) ([]Run, error) {
	q := sq.Select(runColumns...).From("runs").OrderBy("started_at", "rowid")
	if kind != "" {
		q = q.Where(sq.Eq{"kind": kind})
	}
	rows, err := q.RunWith(r.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Run returns one run by ID.
func (r *ResultReader) Run(id string) (*Run, error) {
	row := sq.Select(runColumns...).From("runs").Where(sq.Eq{"run_id": id}).RunWith(r.db).QueryRow()
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Latest returns the most recent run of kind.
func (r *ResultReader) Latest(kind string) (*Run, error) {
	row := sq.Select(runColumns...).From("runs").
		Where(sq.Eq{"kind": kind}).
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		RunWith(r.db).
		QueryRow()
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s runs", ErrRunNotFound, kind)
	}
	return run, err
}

// Closure rebuilds the report stored by a closure run.
func (r *ResultReader) Closure(id string) (*depsolver.Report, error) {
	run, err := r.Run(id)
	if err != nil {
		return nil, err
	}
	rep := &depsolver.Report{}
	for _, name := range run.Targets {
		t, err := depsolver.ParseTarget(name)
		if err != nil {
			return nil, fmt.Errorf("corrupt target in run %s: %w", id, err)
		}
		rep.Targets = append(rep.Targets, t)
	}

	rows, err := sq.Select("handle", "kind", "file_path").From("closure_nodes").
		Where(sq.Eq{"run_id": id}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query closure nodes: %w", err)
	}
	for rows.Next() {
		var n depsolver.NodeReport
		var kind string
		if err := rows.Scan(&n.Handle, &kind, &n.File); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan closure node: %w", err)
		}
		n.Kind = decl.DeclKind(kind)
		rep.Nodes = append(rep.Nodes, n)
	}
	rows.Close()

	rows, err = sq.Select("body").From("stubs").
		Where(sq.Eq{"run_id": id}).
		OrderBy("fqn").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query stubs: %w", err)
	}
	for rows.Next() {
		var body string
		var s depsolver.StubReport
		if err := rows.Scan(&body); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan stub: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &s); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to decode stub: %w", err)
		}
		rep.Stubs = append(rep.Stubs, s)
	}
	rows.Close()

	if err := r.readNotes(id, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *ResultReader) readNotes(id string, rep *depsolver.Report) error {
	rows, err := sq.Select("category", "value").From("run_notes").
		Where(sq.Eq{"run_id": id}).
		OrderBy("category", "position").
		RunWith(r.db).
		Query()
	if err != nil {
		return fmt.Errorf("failed to query run notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, value string
		if err := rows.Scan(&category, &value); err != nil {
			return fmt.Errorf("failed to scan run note: %w", err)
		}
		switch category {
		case noteExternal:
			rep.External = append(rep.External, value)
		case noteMissing:
			rep.Missing = append(rep.Missing, value)
		case noteFallback:
			var f depsolver.Fallback
			if err := json.Unmarshal([]byte(value), &f); err != nil {
				return fmt.Errorf("failed to decode fallback: %w", err)
			}
			rep.Fallbacks = append(rep.Fallbacks, f)
		}
	}
	return rows.Err()
}

// Cycles returns the cycles recorded by a cycles run.
func (r *ResultReader) Cycles(id string) ([]cycles.Cycle, error) {
	rows, err := sq.Select("members").From("cycles").
		Where(sq.Eq{"run_id": id}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var out []cycles.Cycle
	for rows.Next() {
		var members string
		if err := rows.Scan(&members); err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		out = append(out, cycles.Cycle(strings.Split(members, "\n")))
	}
	return out, rows.Err()
}

// Cuts returns the cut set of a cycles run in selection order.
func (r *ResultReader) Cuts(id string) ([]cycles.Cut, error) {
	rows, err := sq.Select("from_component", "to_component", "kind", "member", "weight").From("cuts").
		Where(sq.Eq{"run_id": id}).
		OrderBy("position").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query cuts: %w", err)
	}
	defer rows.Close()

	var out []cycles.Cut
	for rows.Next() {
		var c cycles.Cut
		var kind string
		if err := rows.Scan(&c.From, &c.To, &kind, &c.Member, &c.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan cut: %w", err)
		}
		c.Kind = cycles.InjectionKind(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var targets, started string
	if err := s.Scan(&run.ID, &run.Kind, &targets, &run.Status, &run.Error, &started); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if targets != "" {
		run.Targets = strings.Split(targets, "\n")
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("corrupt started_at %q: %w", started, err)
	}
	run.StartedAt = t
	return &run, nil
}
