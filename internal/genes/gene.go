// Package genes maps SNPs to the genes they fall in.
package genes

// Gene represents a genomic region annotated with a gene symbol.
type Gene struct {
	ID      string // Gene identifier (e.g., ENSG00000133703)
	Name    string // Gene symbol (e.g., KRAS)
	Chrom   string // Chromosome without "chr" prefix
	Start   int64  // Gene start position (1-based)
	End     int64  // Gene end position (1-based, inclusive)
	Strand  int8   // +1 (forward) or -1 (reverse)
	Biotype string // Gene biotype (e.g., protein_coding)
}

// Contains returns true if the given position is within the gene boundaries
// extended by flank bases on both sides.
func (g *Gene) Contains(pos, flank int64) bool {
	return pos >= g.Start-flank && pos <= g.End+flank
}

// Symbol returns the gene name, falling back to the ID.
func (g *Gene) Symbol() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}
