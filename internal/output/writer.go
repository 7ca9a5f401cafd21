// Package output provides annotation matrix output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/bann/internal/geneset"
	"github.com/inodb/bann/internal/matrix"
)

// Output formats.
const (
	FormatDense   = "dense"
	FormatTriplet = "triplet"
)

// MatrixWriter writes an annotation matrix.
type MatrixWriter interface {
	Write(m *matrix.Matrix) error
	Flush() error
}

// NewMatrixWriter returns the writer for format.
func NewMatrixWriter(format string, w io.Writer) (MatrixWriter, error) {
	switch format {
	case "", FormatDense:
		return NewDenseWriter(w), nil
	case FormatTriplet:
		return NewTripletWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want dense or triplet)", format)
	}
}

// DenseWriter writes every cell as a tab-delimited table with SNPs as rows.
type DenseWriter struct {
	w *bufio.Writer
}

// NewDenseWriter creates a new dense tab-delimited writer.
func NewDenseWriter(w io.Writer) *DenseWriter {
	return &DenseWriter{w: bufio.NewWriter(w)}
}

// Write writes the header line followed by one line per row.
func (dw *DenseWriter) Write(m *matrix.Matrix) error {
	header := append([]string{"SNP"}, m.ColLabels()...)
	if _, err := dw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}

	values := make([]string, m.NumCols()+1)
	for i, label := range m.RowLabels() {
		values[0] = label
		for j := 1; j < len(values); j++ {
			values[j] = "0"
		}
		for _, e := range m.Row(i) {
			values[e.Col+1] = strconv.Itoa(e.Value)
		}
		if _, err := dw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (dw *DenseWriter) Flush() error {
	return dw.w.Flush()
}

// TripletWriter writes non-zero cells as SNP, column, value lines.
type TripletWriter struct {
	w *bufio.Writer
}

// NewTripletWriter creates a new sparse triplet writer.
func NewTripletWriter(w io.Writer) *TripletWriter {
	return &TripletWriter{w: bufio.NewWriter(w)}
}

// Write writes the header line followed by one line per non-zero cell.
func (tw *TripletWriter) Write(m *matrix.Matrix) error {
	if _, err := tw.w.WriteString("SNP\tSET\tVALUE\n"); err != nil {
		return err
	}

	cols := m.ColLabels()
	for i, label := range m.RowLabels() {
		for _, e := range m.Row(i) {
			if _, err := fmt.Fprintf(tw.w, "%s\t%s\t%d\n", label, cols[e.Col], e.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TripletWriter) Flush() error {
	return tw.w.Flush()
}

// GeneSetWriter writes gene sets in tab-delimited format.
type GeneSetWriter struct {
	w *bufio.Writer
}

// NewGeneSetWriter creates a new gene set writer.
func NewGeneSetWriter(w io.Writer) *GeneSetWriter {
	return &GeneSetWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (gw *GeneSetWriter) WriteHeader() error {
	_, err := gw.w.WriteString("NAME\tDESCRIPTION\tSIZE\tGENES\n")
	return err
}

// Write writes a single gene set.
func (gw *GeneSetWriter) Write(s *geneset.GeneSet) error {
	desc := s.Description
	if desc == "" {
		desc = "-"
	}
	genes := strings.Join(s.Genes, ",")
	if genes == "" {
		genes = "-"
	}
	_, err := fmt.Fprintf(gw.w, "%s\t%s\t%d\t%s\n", s.Name, desc, s.Size(), genes)
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GeneSetWriter) Flush() error {
	return gw.w.Flush()
}
