// Package matrix builds SNP x pathway annotation matrices.
package matrix

import (
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Mode selects the value stored in an annotation cell.
type Mode int

const (
	// Binary stores 1 when any gene of the SNP belongs to the pathway.
	Binary Mode = iota
	// Count stores the number of distinct SNP genes in the pathway.
	Count
)

// ParseMode parses "binary" or "count".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "binary":
		return Binary, nil
	case "count":
		return Count, nil
	default:
		return Binary, fmt.Errorf("unknown matrix mode %q (want binary or count)", s)
	}
}

func (m Mode) String() string {
	if m == Count {
		return "count"
	}
	return "binary"
}

// Entry is a non-zero cell of a row.
type Entry struct {
	Col   int
	Value int
}

// Matrix is a sparse matrix with labeled rows and columns. Rows hold their
// non-zero entries sorted by column.
type Matrix struct {
	rowLabels []string
	colLabels []string
	rows      [][]Entry
	rowIndex  map[string]int
	colIndex  map[string]int
}

// New assembles a matrix, checking that labels are unique and that row
// entries are in range, strictly increasing by column and non-zero.
func New(rowLabels, colLabels []string, rows [][]Entry) (*Matrix, error) {
	if len(rows) != len(rowLabels) {
		return nil, fmt.Errorf("have %d rows for %d row labels", len(rows), len(rowLabels))
	}

	rowIndex, err := indexLabels(rowLabels, "row")
	if err != nil {
		return nil, err
	}
	colIndex, err := indexLabels(colLabels, "column")
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		for k, e := range row {
			if e.Col < 0 || e.Col >= len(colLabels) {
				return nil, fmt.Errorf("row %q: column %d out of range", rowLabels[i], e.Col)
			}
			if k > 0 && row[k-1].Col >= e.Col {
				return nil, fmt.Errorf("row %q: columns not strictly increasing", rowLabels[i])
			}
			if e.Value == 0 {
				return nil, fmt.Errorf("row %q: explicit zero at column %d", rowLabels[i], e.Col)
			}
		}
	}

	return &Matrix{
		rowLabels: rowLabels,
		colLabels: colLabels,
		rows:      rows,
		rowIndex:  rowIndex,
		colIndex:  colIndex,
	}, nil
}

func indexLabels(labels []string, kind string) (map[string]int, error) {
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := idx[l]; dup {
			return nil, fmt.Errorf("duplicate %s label %q", kind, l)
		}
		idx[l] = i
	}
	return idx, nil
}

// NumRows returns the number of rows (SNPs).
func (m *Matrix) NumRows() int { return len(m.rowLabels) }

// NumCols returns the number of columns (pathways or genes).
func (m *Matrix) NumCols() int { return len(m.colLabels) }

// RowLabels returns the row labels in order.
func (m *Matrix) RowLabels() []string { return m.rowLabels }

// ColLabels returns the column labels in order.
func (m *Matrix) ColLabels() []string { return m.colLabels }

// Row returns the non-zero entries of row i. The slice must not be modified.
func (m *Matrix) Row(i int) []Entry { return m.rows[i] }

// RowIndex returns the index of the labeled row, or -1.
func (m *Matrix) RowIndex(label string) int {
	if i, ok := m.rowIndex[label]; ok {
		return i
	}
	return -1
}

// ColIndex returns the index of the labeled column, or -1.
func (m *Matrix) ColIndex(label string) int {
	if i, ok := m.colIndex[label]; ok {
		return i
	}
	return -1
}

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) int {
	row := m.rows[i]
	k := sort.Search(len(row), func(k int) bool { return row[k].Col >= j })
	if k < len(row) && row[k].Col == j {
		return row[k].Value
	}
	return 0
}

// NNZ returns the number of non-zero cells.
func (m *Matrix) NNZ() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// ColumnSums returns the sum of every column.
func (m *Matrix) ColumnSums() []int {
	sums := make([]int, len(m.colLabels))
	for _, row := range m.rows {
		for _, e := range row {
			sums[e.Col] += e.Value
		}
	}
	return sums
}

// Dense returns the matrix as a gonum dense matrix. It returns nil when the
// matrix has no rows or no columns, which gonum cannot represent.
func (m *Matrix) Dense() *mat.Dense {
	r, c := m.NumRows(), m.NumCols()
	if r == 0 || c == 0 {
		return nil
	}
	d := mat.NewDense(r, c, nil)
	for i, row := range m.rows {
		for _, e := range row {
			d.Set(i, e.Col, float64(e.Value))
		}
	}
	return d
}

// Equal reports whether both matrices have identical labels and cells.
func (m *Matrix) Equal(o *Matrix) bool {
	if !slices.Equal(m.rowLabels, o.rowLabels) || !slices.Equal(m.colLabels, o.colLabels) {
		return false
	}
	for i := range m.rows {
		if !slices.Equal(m.rows[i], o.rows[i]) {
			return false
		}
	}
	return true
}
