// Package gwas extracts SNP identifiers from GWAS summary statistics.
package gwas

import (
	"fmt"
	"math"
	"strings"
)

// SNP is a single variant referenced by a summary statistics file.
type SNP struct {
	ID    string  // Variant identifier, unique within an extraction
	Chrom string  // Chromosome without "chr" prefix, empty if unknown
	Pos   int64   // 1-based position, 0 if unknown
	P     float64 // Association p-value, NaN if absent
}

// HasLocus reports whether the SNP carries a genomic position.
func (s SNP) HasLocus() bool {
	return s.Chrom != "" && s.Pos > 0
}

// HasP reports whether the SNP carries a p-value.
func (s SNP) HasP() bool {
	return !math.IsNaN(s.P)
}

// LocusID formats the chrom:pos identifier used when a row has no ID.
func LocusID(chrom string, pos int64) string {
	return fmt.Sprintf("%s:%d", chrom, pos)
}

// NormalizeChrom removes the "chr" prefix so that GWAS files and GENCODE
// annotations agree on chromosome names.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}

// Source yields SNPs from an input file.
type Source interface {
	// Next reads the next SNP.
	// Returns nil, nil when there are no more rows.
	Next() (*SNP, error)

	// Close closes the source and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// ParseError represents an error during summary statistics parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gwas parse error at line %d: %s", e.Line, e.Message)
}
