package matrix

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/bann/internal/genes"
	"github.com/inodb/bann/internal/geneset"
	"github.com/inodb/bann/internal/gwas"
)

// Stats summarizes a build.
type Stats struct {
	Rows      int // SNPs (matrix rows)
	Cols      int // pathways or genes (matrix columns)
	Mapped    int // SNPs assigned to at least one gene
	Annotated int // SNPs with at least one non-zero cell
	NNZ       int // non-zero cells
}

// Builder joins SNPs to genes and genes to pathways.
type Builder struct {
	mapper  genes.Mapper
	sets    *geneset.Collection
	mode    Mode
	workers int
	logger  *zap.Logger
}

// NewBuilder creates a builder over a gene mapper and a gene set collection.
func NewBuilder(mapper genes.Mapper, sets *geneset.Collection) *Builder {
	return &Builder{
		mapper: mapper,
		sets:   sets,
		logger: zap.NewNop(),
	}
}

// SetMode selects binary or count cells.
func (b *Builder) SetMode(m Mode) {
	b.mode = m
}

// SetWorkers sets the worker count; 0 uses runtime.NumCPU().
func (b *Builder) SetWorkers(n int) {
	b.workers = n
}

// SetLogger sets the logger for progress and summary messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// Build returns the SNP x pathway matrix: one row per SNP in input order and
// one column per gene set in collection order. SNP IDs must be unique.
func (b *Builder) Build(ctx context.Context, snps []gwas.SNP) (*Matrix, Stats, error) {
	if err := checkUnique(snps); err != nil {
		return nil, Stats{}, err
	}

	rows := make([][]Entry, 0, len(snps))
	stats := Stats{Rows: len(snps), Cols: b.sets.Len()}

	err := b.run(ctx, snps, b.pathwayRow, func(r WorkResult) error {
		if len(r.Genes) > 0 {
			stats.Mapped++
		}
		if len(r.Entries) > 0 {
			stats.Annotated++
		}
		stats.NNZ += len(r.Entries)
		rows = append(rows, r.Entries)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	m, err := New(gwas.IDs(snps), b.sets.Names(), rows)
	if err != nil {
		return nil, stats, fmt.Errorf("assemble matrix: %w", err)
	}

	b.logger.Info("built pathway annotation matrix",
		zap.Int("snps", stats.Rows),
		zap.Int("pathways", stats.Cols),
		zap.Int("mapped_snps", stats.Mapped),
		zap.Int("annotated_snps", stats.Annotated),
		zap.Int("nonzero", stats.NNZ),
		zap.Stringer("mode", b.mode))

	return m, stats, nil
}

// BuildGeneMatrix returns the SNP x gene membership matrix. Columns are the
// genes hit by at least one SNP, sorted lexically; cells are 1.
func (b *Builder) BuildGeneMatrix(ctx context.Context, snps []gwas.SNP) (*Matrix, Stats, error) {
	if err := checkUnique(snps); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Rows: len(snps)}
	perSNP := make([][]string, 0, len(snps))
	geneSet := make(map[string]struct{})

	err := b.run(ctx, snps, b.geneRow, func(r WorkResult) error {
		if len(r.Genes) > 0 {
			stats.Mapped++
			stats.Annotated++
		}
		for _, g := range r.Genes {
			geneSet[g] = struct{}{}
		}
		perSNP = append(perSNP, r.Genes)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	cols := make([]string, 0, len(geneSet))
	for g := range geneSet {
		cols = append(cols, g)
	}
	sort.Strings(cols)
	colIndex := make(map[string]int, len(cols))
	for i, g := range cols {
		colIndex[g] = i
	}

	rows := make([][]Entry, len(perSNP))
	for i, gs := range perSNP {
		// gs is sorted, and so are cols, so entries come out in column order.
		for _, g := range gs {
			rows[i] = append(rows[i], Entry{Col: colIndex[g], Value: 1})
		}
		stats.NNZ += len(rows[i])
	}
	stats.Cols = len(cols)

	m, err := New(gwas.IDs(snps), cols, rows)
	if err != nil {
		return nil, stats, fmt.Errorf("assemble gene matrix: %w", err)
	}

	b.logger.Info("built gene annotation matrix",
		zap.Int("snps", stats.Rows),
		zap.Int("genes", stats.Cols),
		zap.Int("mapped_snps", stats.Mapped))

	return m, stats, nil
}

// run feeds snps through the worker pool and hands results to collect in input order.
func (b *Builder) run(ctx context.Context, snps []gwas.SNP, fn rowFunc, collect func(WorkResult) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := b.workers
	items := feed(ctx, snps, 2*max(workers, 1))
	results := parallelRows(items, workers, fn)

	if err := OrderedCollect(results, collect); err != nil {
		return err
	}
	return ctx.Err()
}

// pathwayRow maps a SNP to genes and aggregates the gene sets they belong to.
func (b *Builder) pathwayRow(s gwas.SNP) ([]string, []Entry) {
	gs := b.mapper.Genes(s)
	if len(gs) == 0 {
		return nil, nil
	}

	counts := make(map[int]int)
	for _, g := range gs {
		for _, idx := range b.sets.SetsForGene(g) {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return gs, nil
	}

	entries := make([]Entry, 0, len(counts))
	for col, n := range counts {
		v := n
		if b.mode == Binary {
			v = 1
		}
		entries = append(entries, Entry{Col: col, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Col < entries[j].Col })

	return gs, entries
}

func (b *Builder) geneRow(s gwas.SNP) ([]string, []Entry) {
	return b.mapper.Genes(s), nil
}

// checkUnique rejects SNP lists with repeated IDs.
func checkUnique(snps []gwas.SNP) error {
	seen := make(map[string]int, len(snps))
	for i, s := range snps {
		if prev, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate SNP %q at positions %d and %d", s.ID, prev, i)
		}
		seen[s.ID] = i
	}
	return nil
}
