package genes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/inodb/bann/internal/gwas"
)

// Mapper assigns genes to a SNP. Implementations must be safe for
// concurrent use and return sorted, unique symbols that callers do not modify.
type Mapper interface {
	Genes(snp gwas.SNP) []string
}

// Index maps SNPs to genes by position using one interval tree per chromosome.
type Index struct {
	trees map[string]*IntervalTree
	flank int64
	count int
}

// NewIndex builds a positional index. A SNP maps to every gene whose body,
// extended by flank bases on each side, contains it.
func NewIndex(genes []*Gene, flank int64) *Index {
	byChrom := make(map[string][]*Gene)
	for _, g := range genes {
		byChrom[g.Chrom] = append(byChrom[g.Chrom], g)
	}

	idx := &Index{
		trees: make(map[string]*IntervalTree, len(byChrom)),
		flank: flank,
		count: len(genes),
	}
	for chrom, gs := range byChrom {
		idx.trees[chrom] = BuildIntervalTree(gs)
	}
	return idx
}

// GeneCount returns the number of indexed genes.
func (idx *Index) GeneCount() int {
	return idx.count
}

// Chromosomes returns a sorted list of indexed chromosomes.
func (idx *Index) Chromosomes() []string {
	chroms := make([]string, 0, len(idx.trees))
	for c := range idx.trees {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms
}

// FindGenes returns the genes overlapping chrom:pos within the flank.
func (idx *Index) FindGenes(chrom string, pos int64) []*Gene {
	tree, ok := idx.trees[gwas.NormalizeChrom(chrom)]
	if !ok {
		return nil
	}
	return tree.FindOverlaps(pos, idx.flank)
}

// Genes implements Mapper. SNPs without a locus map to no genes.
func (idx *Index) Genes(snp gwas.SNP) []string {
	if !snp.HasLocus() {
		return nil
	}

	hits := idx.FindGenes(snp.Chrom, snp.Pos)
	if len(hits) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(hits))
	for _, g := range hits {
		symbols = append(symbols, g.Symbol())
	}
	return sortedUnique(symbols)
}

// Table maps SNP identifiers to genes from an explicit lookup table.
type Table struct {
	genes map[string][]string
}

// LoadTable reads a SNP -> gene table. Each line holds a SNP ID and one or
// more comma separated gene symbols, separated by a tab. Lines starting
// with "#" are comments; repeated SNPs accumulate genes.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open SNP gene table: %w", err)
	}
	defer f.Close()

	return ParseTable(f)
}

// ParseTable parses SNP -> gene table content.
func ParseTable(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)
	raw := make(map[string][]string)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		snp, geneList, ok := strings.Cut(line, "\t")
		snp = strings.TrimSpace(snp)
		if !ok || snp == "" {
			return nil, &ParseError{
				Line:    lineNum,
				Message: "expected SNP and gene columns separated by a tab",
			}
		}

		for _, g := range strings.Split(geneList, ",") {
			if g = strings.TrimSpace(g); g != "" {
				raw[snp] = append(raw[snp], g)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan SNP gene table: %w", err)
	}

	t := &Table{genes: make(map[string][]string, len(raw))}
	for snp, gs := range raw {
		t.genes[snp] = sortedUnique(gs)
	}
	return t, nil
}

// Len returns the number of SNPs in the table.
func (t *Table) Len() int {
	return len(t.genes)
}

// Genes implements Mapper.
func (t *Table) Genes(snp gwas.SNP) []string {
	return t.genes[snp.ID]
}

// Union combines mappers; a SNP maps to every gene any of them reports.
type Union []Mapper

// Genes implements Mapper.
func (u Union) Genes(snp gwas.SNP) []string {
	switch len(u) {
	case 0:
		return nil
	case 1:
		return u[0].Genes(snp)
	}

	var all []string
	for _, m := range u {
		all = append(all, m.Genes(snp)...)
	}
	if len(all) == 0 {
		return nil
	}
	return sortedUnique(all)
}

// sortedUnique sorts s in place and removes repeats.
func sortedUnique(s []string) []string {
	sort.Strings(s)
	out := s[:0]
	for _, v := range s {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ParseError represents an error during SNP gene table parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gene table parse error at line %d: %s", e.Line, e.Message)
}
