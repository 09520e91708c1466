// Package store keeps run matrices, parameters and snapshots in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/qdynamics/mat"
)

const (
	tableShape    = "shape"
	tableMatrix   = "m"
	tableRun      = "run"
	tableSnapshot = "snapshot"
)

// DB is a run database.
type DB struct {
	Path string

	db *sql.DB
}

// Open opens the database at dbPath, creating it if needed.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, dbPath)
	}
	return &DB{Path: dbPath, db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func prepareDB(db *sql.DB) error {
	ctx := context.Background()
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, rows INTEGER, cols INTEGER) STRICT`, tableShape),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (name TEXT, i INTEGER, j INTEGER, re REAL, im REAL, PRIMARY KEY (name, i, j)) STRICT`, tableMatrix),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, dt REAL, steps INTEGER) STRICT`, tableRun),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (step INTEGER, idx INTEGER, magnitude REAL, PRIMARY KEY (step, idx)) STRICT`, tableSnapshot),
	}
	for _, sqlStr := range stmts {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}

// SaveMatrix stores m under name, replacing any previous matrix of that name.
func (d *DB) SaveMatrix(ctx context.Context, name string, m *mat.Dense) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE name=?`, tableMatrix)
	if _, err := tx.ExecContext(ctx, sqlStr, name); err != nil {
		return errors.Wrap(err, sqlStr)
	}
	sqlStr = fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, rows, cols) VALUES (?, ?, ?)`, tableShape)
	if _, err := tx.ExecContext(ctx, sqlStr, name, m.Rows(), m.Cols()); err != nil {
		return errors.Wrap(err, sqlStr)
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (name, i, j, re, im) VALUES (?, ?, ?, ?, ?)`, tableMatrix)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, sqlStr)
	}
	defer stmt.Close()
	for i := range m.Rows() {
		for j := range m.Cols() {
			v := m.At(i, j)
			if v == 0 {
				continue
			}
			if _, err := stmt.ExecContext(ctx, name, i, j, real(v), imag(v)); err != nil {
				return errors.Wrap(err, fmt.Sprintf("%s %d %d", name, i, j))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// LoadMatrix reads the matrix stored under name.
func (d *DB) LoadMatrix(ctx context.Context, name string) (*mat.Dense, error) {
	sqlStr := fmt.Sprintf(`SELECT rows, cols FROM %s WHERE name=?`, tableShape)
	var rows, cols int
	err := d.db.QueryRowContext(ctx, sqlStr, name).Scan(&rows, &cols)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Errorf("no matrix %q", name)
	case err != nil:
		return nil, errors.Wrap(err, "")
	}
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("%q shape %d %d", name, rows, cols)
	}

	m := mat.Zeros(rows, cols)
	sqlStr = fmt.Sprintf(`SELECT i, j, re, im FROM %s WHERE name=? ORDER BY i, j`, tableMatrix)
	dbRows, err := d.db.QueryContext(ctx, sqlStr, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer dbRows.Close()
	for dbRows.Next() {
		var i, j int
		var re, im float64
		if err := dbRows.Scan(&i, &j, &re, &im); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if i < 0 || i >= rows || j < 0 || j >= cols {
			return nil, errors.Errorf("%q out of bounds %d %d", name, i, j)
		}
		m.Set(i, j, complex(re, im))
	}
	if err := dbRows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

// SaveRun stores the run parameters and clears the snapshots of any previous run.
func (d *DB) SaveRun(ctx context.Context, dt float64, steps int) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, dt, steps) VALUES (0, ?, ?)`, tableRun)
	if _, err := tx.ExecContext(ctx, sqlStr, dt, steps); err != nil {
		return errors.Wrap(err, sqlStr)
	}
	sqlStr = fmt.Sprintf(`DELETE FROM %s`, tableSnapshot)
	if _, err := tx.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, sqlStr)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Run returns the stored run parameters.
func (d *DB) Run(ctx context.Context) (float64, int, error) {
	sqlStr := fmt.Sprintf(`SELECT dt, steps FROM %s WHERE id=0`, tableRun)
	var dt float64
	var steps int
	if err := d.db.QueryRowContext(ctx, sqlStr).Scan(&dt, &steps); err != nil {
		return -1, -1, errors.Wrap(err, "")
	}
	return dt, steps, nil
}

// AppendSnapshot stores the diagonal magnitudes of a step.
func (d *DB) AppendSnapshot(ctx context.Context, step int, diag []float64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (step, idx, magnitude) VALUES (?, ?, ?)`, tableSnapshot)
	stmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return errors.Wrap(err, sqlStr)
	}
	defer stmt.Close()
	for i, v := range diag {
		if _, err := stmt.ExecContext(ctx, step, i, v); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d %d", step, i))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Snapshots returns the stored snapshots in step order.
func (d *DB) Snapshots(ctx context.Context) ([][]float64, error) {
	sqlStr := fmt.Sprintf(`SELECT step, idx, magnitude FROM %s ORDER BY step, idx`, tableSnapshot)
	rows, err := d.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	snapshots := make([][]float64, 0)
	prevStep := -1
	for rows.Next() {
		var step, idx int
		var v float64
		if err := rows.Scan(&step, &idx, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if step != prevStep {
			snapshots = append(snapshots, make([]float64, 0))
			prevStep = step
		}
		last := len(snapshots) - 1
		snapshots[last] = append(snapshots[last], v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return snapshots, nil
}
