package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/bann/internal/matrix"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Matrix kinds.
const (
	KindPathway = "pathway"
	KindGene    = "gene"
)

// Run describes a stored annotation matrix.
type Run struct {
	ID        string
	CreatedAt time.Time
	Kind      string
	Mode      string
	Rows      int64
	Cols      int64
	NNZ       int64
	Inputs    []FileFingerprint
}

// Cell is a labeled non-zero matrix cell returned by queries.
type Cell struct {
	Label string
	Value int64
}

// SaveMatrix stores m as a new run and returns its ID. The runs row is
// written last, so a failed save leaves no listed run; partial data is removed.
func (s *Store) SaveMatrix(ctx context.Context, m *matrix.Matrix, kind string, mode matrix.Mode, inputs []FileFingerprint) (string, error) {
	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Kind:      kind,
		Mode:      mode.String(),
		Rows:      int64(m.NumRows()),
		Cols:      int64(m.NumCols()),
		NNZ:       int64(m.NNZ()),
	}

	if err := s.saveRun(ctx, &run, m, inputs); err != nil {
		if perr := s.purgeRun(context.Background(), run.ID); perr != nil {
			return "", errors.Join(err, fmt.Errorf("remove partial run: %w", perr))
		}
		return "", err
	}
	return run.ID, nil
}

func (s *Store) saveRun(ctx context.Context, run *Run, m *matrix.Matrix, inputs []FileFingerprint) error {
	for _, in := range inputs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO run_inputs (run_id, role, path, size, mod_time) VALUES (?, ?, ?, ?, ?)`,
			run.ID, in.Role, in.Path, in.Size, in.ModTime,
		); err != nil {
			return fmt.Errorf("insert run input: %w", err)
		}
	}

	if err := s.withAppender(ctx, "run_rows", func(a *goduckdb.Appender) error {
		for i, label := range m.RowLabels() {
			if err := a.AppendRow(run.ID, int64(i), label); err != nil {
				return fmt.Errorf("append row label: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.withAppender(ctx, "run_cols", func(a *goduckdb.Appender) error {
		for j, label := range m.ColLabels() {
			if err := a.AppendRow(run.ID, int64(j), label); err != nil {
				return fmt.Errorf("append column label: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.withAppender(ctx, "run_cells", func(a *goduckdb.Appender) error {
		for i := range m.NumRows() {
			for _, e := range m.Row(i) {
				if err := a.AppendRow(run.ID, int64(i), int64(e.Col), int64(e.Value)); err != nil {
					return fmt.Errorf("append cell: %w", err)
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, kind, mode, n_rows, n_cols, nnz) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Kind, run.Mode, run.Rows, run.Cols, run.NNZ,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the metadata of a run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, created_at, kind, mode, n_rows, n_cols, nnz FROM runs WHERE run_id = ?`, id,
	).Scan(&r.ID, &r.CreatedAt, &r.Kind, &r.Mode, &r.Rows, &r.Cols, &r.NNZ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, path, size, mod_time FROM run_inputs WHERE run_id = ? ORDER BY role`, id)
	if err != nil {
		return nil, fmt.Errorf("query run inputs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in FileFingerprint
		if err := rows.Scan(&in.Role, &in.Path, &in.Size, &in.ModTime); err != nil {
			return nil, fmt.Errorf("scan run input: %w", err)
		}
		r.Inputs = append(r.Inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run inputs: %w", err)
	}

	return &r, nil
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, kind, mode, n_rows, n_cols, nnz FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Kind, &r.Mode, &r.Rows, &r.Cols, &r.NNZ); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LoadMatrix reconstructs the matrix stored for a run.
func (s *Store) LoadMatrix(ctx context.Context, id string) (*matrix.Matrix, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rowLabels, err := s.labels(ctx, `SELECT snp FROM run_rows WHERE run_id = ? ORDER BY row_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("load row labels: %w", err)
	}
	colLabels, err := s.labels(ctx, `SELECT name FROM run_cols WHERE run_id = ? ORDER BY col_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("load column labels: %w", err)
	}
	if int64(len(rowLabels)) != run.Rows || int64(len(colLabels)) != run.Cols {
		return nil, fmt.Errorf("run %s is incomplete: have %dx%d labels, expected %dx%d",
			id, len(rowLabels), len(colLabels), run.Rows, run.Cols)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, col_idx, value FROM run_cells WHERE run_id = ? ORDER BY row_idx, col_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	entries := make([][]matrix.Entry, len(rowLabels))
	for rows.Next() {
		var i, j, v int64
		if err := rows.Scan(&i, &j, &v); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		if i < 0 || i >= int64(len(entries)) {
			return nil, fmt.Errorf("cell row %d out of range", i)
		}
		entries[i] = append(entries[i], matrix.Entry{Col: int(j), Value: int(v)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}

	return matrix.New(rowLabels, colLabels, entries)
}

// PathwaysForSNP returns the non-zero columns of a SNP's row, in column order.
func (s *Store) PathwaysForSNP(ctx context.Context, id, snp string) ([]Cell, error) {
	return s.cells(ctx, `SELECT c.name, v.value
		FROM run_rows r
		JOIN run_cells v ON v.run_id = r.run_id AND v.row_idx = r.row_idx
		JOIN run_cols c ON c.run_id = v.run_id AND c.col_idx = v.col_idx
		WHERE r.run_id = ? AND r.snp = ?
		ORDER BY v.col_idx`, id, snp)
}

// SNPsInPathway returns the SNPs with a non-zero cell in the named column, in row order.
func (s *Store) SNPsInPathway(ctx context.Context, id, name string) ([]Cell, error) {
	return s.cells(ctx, `SELECT r.snp, v.value
		FROM run_cols c
		JOIN run_cells v ON v.run_id = c.run_id AND v.col_idx = c.col_idx
		JOIN run_rows r ON r.run_id = v.run_id AND r.row_idx = v.row_idx
		WHERE c.run_id = ? AND c.name = ?
		ORDER BY v.row_idx`, id, name)
}

// DeleteRun removes a run and all of its data.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.GetRun(ctx, id); err != nil {
		return err
	}
	return s.purgeRun(ctx, id)
}

// purgeRun deletes every row of a run. It keeps going after a failing table
// and returns the joined errors.
func (s *Store) purgeRun(ctx context.Context, id string) error {
	var errs []error
	for _, table := range []string{"runs", "run_cells", "run_cols", "run_rows", "run_inputs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", id); err != nil {
			errs = append(errs, fmt.Errorf("delete from %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) labels(ctx context.Context, query, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func (s *Store) cells(ctx context.Context, query string, args ...any) ([]Cell, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var c Cell
		if err := rows.Scan(&c.Label, &c.Value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	return cells, nil
}
