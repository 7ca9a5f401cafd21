// Package pipeline wires summary statistics, gene mapping and gene sets into
// an annotation matrix.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/bann/internal/duckdb"
	"github.com/inodb/bann/internal/genes"
	"github.com/inodb/bann/internal/geneset"
	"github.com/inodb/bann/internal/gwas"
	"github.com/inodb/bann/internal/matrix"
	"github.com/inodb/bann/internal/output"
)

// ErrNoMapping is returned when neither a GTF nor a SNP gene table is configured.
var ErrNoMapping = errors.New("no SNP to gene mapping configured: set a GTF file or a SNP gene table")

// Config describes one annotation run.
type Config struct {
	SummaryStats string       // GWAS summary statistics path, "-" for stdin
	GWAS         gwas.Options // input format and filters

	GeneSets       string // GMT path; geneset.DefaultPath when empty
	GeneSetOptions geneset.Options

	GTF       string   // GENCODE GTF for positional mapping
	Biotypes  []string // gene_type filter for the GTF
	Flank     int64    // bases added on each side of a gene body
	GeneTable string   // explicit SNP -> gene table

	Kind    string      // duckdb.KindPathway (default) or duckdb.KindGene
	Mode    matrix.Mode // cell values for pathway matrices
	Workers int         // 0 uses runtime.NumCPU()

	Output       string // matrix output path, "-" for stdout, empty to skip
	OutputFormat string // output.FormatDense or output.FormatTriplet

	StorePath string // DuckDB path; empty disables persistence
}

// Stats collects the per-stage summaries of a run.
type Stats struct {
	GWAS     gwas.Stats
	GeneSets geneset.Stats
	Genes    int // genes indexed from the GTF
	TableSNP int // SNPs in the gene table
	Matrix   matrix.Stats
}

// Result is the outcome of Run.
type Result struct {
	Matrix *matrix.Matrix
	RunID  string // set when the run was stored
	Stats  Stats
}

func (c *Config) validate() error {
	if c.SummaryStats == "" {
		return errors.New("summary statistics path is required")
	}
	if c.GTF == "" && c.GeneTable == "" {
		return ErrNoMapping
	}
	if c.Flank < 0 {
		return fmt.Errorf("flank must not be negative, got %d", c.Flank)
	}
	switch c.Kind {
	case "":
		c.Kind = duckdb.KindPathway
	case duckdb.KindPathway, duckdb.KindGene:
	default:
		return fmt.Errorf("unknown matrix kind %q (want pathway or gene)", c.Kind)
	}
	if c.Kind == duckdb.KindPathway && c.GeneSets == "" {
		c.GeneSets = geneset.DefaultPath
	}
	return nil
}

// Run loads the inputs concurrently, builds the matrix, writes it and
// optionally records it in the store.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		res     = &Result{}
		snps    []gwas.SNP
		sets    *geneset.Collection
		index   *genes.Index
		table   *genes.Table
		g, gctx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		var err error
		snps, res.Stats.GWAS, err = gwas.ExtractFile(cfg.SummaryStats, cfg.GWAS)
		if err != nil {
			return fmt.Errorf("extract SNPs: %w", err)
		}
		logger.Info("extracted SNPs",
			zap.String("path", cfg.SummaryStats),
			zap.Int("rows", res.Stats.GWAS.Rows),
			zap.Int("unique", res.Stats.GWAS.Unique),
			zap.Int("duplicates", res.Stats.GWAS.Duplicates),
			zap.Int("p_filtered", res.Stats.GWAS.Filtered))
		return gctx.Err()
	})

	if cfg.Kind == duckdb.KindPathway {
		g.Go(func() error {
			var err error
			sets, res.Stats.GeneSets, err = geneset.ReadPathwayFile(cfg.GeneSets, cfg.GeneSetOptions)
			if err != nil {
				return fmt.Errorf("load gene sets: %w", err)
			}
			logger.Info("loaded gene sets",
				zap.String("path", cfg.GeneSets),
				zap.Int("sets", res.Stats.GeneSets.Kept),
				zap.Int("size_filtered", res.Stats.GeneSets.SizeFiltered),
				zap.Int("duplicate_genes", res.Stats.GeneSets.DuplicateGenes))
			return gctx.Err()
		})
	}

	if cfg.GTF != "" {
		g.Go(func() error {
			gs, err := genes.NewGTFLoader(cfg.GTF, cfg.Biotypes...).Load()
			if err != nil {
				return fmt.Errorf("load genes: %w", err)
			}
			index = genes.NewIndex(gs, cfg.Flank)
			res.Stats.Genes = index.GeneCount()
			logger.Info("indexed genes",
				zap.String("path", cfg.GTF),
				zap.Int("genes", index.GeneCount()),
				zap.Int("chromosomes", len(index.Chromosomes())),
				zap.Int64("flank", cfg.Flank))
			return gctx.Err()
		})
	}

	if cfg.GeneTable != "" {
		g.Go(func() error {
			var err error
			table, err = genes.LoadTable(cfg.GeneTable)
			if err != nil {
				return fmt.Errorf("load SNP gene table: %w", err)
			}
			res.Stats.TableSNP = table.Len()
			logger.Info("loaded SNP gene table",
				zap.String("path", cfg.GeneTable),
				zap.Int("snps", table.Len()))
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mapper genes.Union
	if index != nil {
		mapper = append(mapper, index)
	}
	if table != nil {
		mapper = append(mapper, table)
	}

	if sets == nil {
		sets, _ = geneset.NewCollection(nil)
	}
	b := matrix.NewBuilder(mapper, sets)
	b.SetMode(cfg.Mode)
	b.SetWorkers(cfg.Workers)
	b.SetLogger(logger)

	var err error
	if cfg.Kind == duckdb.KindGene {
		res.Matrix, res.Stats.Matrix, err = b.BuildGeneMatrix(ctx, snps)
	} else {
		res.Matrix, res.Stats.Matrix, err = b.Build(ctx, snps)
	}
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}

	if cfg.Output != "" {
		if err := writeMatrix(cfg.Output, cfg.OutputFormat, res.Matrix); err != nil {
			return nil, err
		}
		logger.Info("wrote matrix", zap.String("path", cfg.Output), zap.String("format", cfg.OutputFormat))
	}

	if cfg.StorePath != "" {
		res.RunID, err = storeRun(ctx, cfg, res.Matrix)
		if err != nil {
			return nil, err
		}
		logger.Info("stored run", zap.String("run_id", res.RunID), zap.String("store", cfg.StorePath))
	}

	return res, nil
}

func writeMatrix(path, format string, m *matrix.Matrix) (err error) {
	out, err := output.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	w, err := output.NewMatrixWriter(format, out)
	if err != nil {
		return err
	}
	if err := w.Write(m); err != nil {
		return fmt.Errorf("write matrix: %w", err)
	}
	return w.Flush()
}

func storeRun(ctx context.Context, cfg Config, m *matrix.Matrix) (string, error) {
	store, err := duckdb.Open(cfg.StorePath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	files := []struct{ role, path string }{
		{duckdb.RoleSummaryStats, cfg.SummaryStats},
		{duckdb.RoleGTF, cfg.GTF},
		{duckdb.RoleGeneTable, cfg.GeneTable},
	}
	if cfg.Kind == duckdb.KindPathway {
		files = append(files, struct{ role, path string }{duckdb.RoleGeneSets, cfg.GeneSets})
	}

	var inputs []duckdb.FileFingerprint
	for _, in := range files {
		if in.path == "" || in.path == "-" {
			continue
		}
		fp, err := duckdb.StatFile(in.role, in.path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", in.role, err)
		}
		inputs = append(inputs, fp)
	}

	id, err := store.SaveMatrix(ctx, m, cfg.Kind, cfg.Mode, inputs)
	if err != nil {
		return "", fmt.Errorf("store run: %w", err)
	}
	return id, nil
}
