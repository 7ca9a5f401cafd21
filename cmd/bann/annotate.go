package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/bann/internal/duckdb"
	"github.com/inodb/bann/internal/geneset"
	"github.com/inodb/bann/internal/gwas"
	"github.com/inodb/bann/internal/matrix"
	"github.com/inodb/bann/internal/output"
	"github.com/inodb/bann/internal/pipeline"
)

// annotateKeys maps annotate flags to config keys.
var annotateKeys = map[string]string{
	"input-format": "gwas.format",
	"delimiter":    "gwas.delimiter",
	"id-column":    "gwas.id_column",
	"max-p":        "gwas.max_p",
	"genesets":     "genesets.path",
	"min-size":     "genesets.min_size",
	"max-size":     "genesets.max_size",
	"gtf":          "genes.gtf",
	"assembly":     "genes.assembly",
	"biotype":      "genes.biotypes",
	"flank":        "genes.flank",
	"gene-table":   "genes.table",
	"kind":         "matrix.kind",
	"mode":         "matrix.mode",
	"workers":      "matrix.workers",
	"format":       "output.format",
	"store":        "store.path",
}

func newAnnotateCmd(a *app) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "annotate [flags] <summary-stats>",
		Short: "Build a SNP x pathway annotation matrix",
		Long: `Extract the unique SNPs of a GWAS summary statistics file (delimited text or
GWAS-VCF, optionally gzipped), map them to genes and write one matrix row per
SNP with one column per gene set.

SNPs are mapped to genes by position using a GENCODE GTF (--gtf), by an
explicit SNP<TAB>gene[,gene] table (--gene-table), or both. Without either,
the GTF fetched by 'bann download' for --assembly is used.`,
		Example: `  bann annotate --gtf gencode.gtf.gz sumstats.tsv.gz
  bann annotate --gtf gencode.gtf.gz --flank 10000 --mode count -o matrix.tsv.gz sumstats.tsv
  bann annotate --gene-table snp2gene.tsv --format triplet --store runs.duckdb sumstats.vcf.gz
  zcat sumstats.tsv.gz | bann annotate --gtf gencode.gtf.gz -`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := annotateConfig(args[0], outputPath)
			if err != nil {
				return &usageError{err}
			}

			if cfg.GTF == "" && cfg.GeneTable == "" {
				assembly := viper.GetString("genes.assembly")
				if gtf, ok := findGENCODEGTF(assembly); ok {
					a.logger.Info("using downloaded GENCODE annotations",
						zap.String("assembly", assembly), zap.String("gtf", gtf))
					cfg.GTF = gtf
				}
			}

			res, err := pipeline.Run(cmd.Context(), cfg, a.logger)
			if err != nil {
				return err
			}

			printSummary(cmd.ErrOrStderr(), res)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("input-format", "", "Summary statistics format: table, vcf (auto-detected if not specified)")
	f.String("delimiter", "", "Table delimiter: tab, comma, space, semicolon, pipe (auto-detected if not specified)")
	f.String("id-column", "", "SNP identifier column (default: first of SNP, ID, RSID, MarkerName, ...)")
	f.Float64("max-p", 0, "Only keep SNPs with p-value <= max-p (0 keeps all)")
	f.String("genesets", geneset.DefaultPath, "Gene set GMT file")
	f.Int("min-size", 0, "Drop gene sets with fewer genes (0 = no minimum)")
	f.Int("max-size", 0, "Drop gene sets with more genes (0 = no maximum)")
	f.String("gtf", "", "GENCODE GTF for positional SNP to gene mapping")
	f.String("assembly", "GRCh38", "Assembly of the downloaded GENCODE GTF used when --gtf is not given")
	f.StringSlice("biotype", nil, "Only use genes with these gene_type values (e.g. protein_coding)")
	f.Int64("flank", 0, "Bases added on each side of a gene when mapping SNPs")
	f.String("gene-table", "", "Explicit SNP to gene table (snp<TAB>gene[,gene...])")
	f.String("kind", duckdb.KindPathway, "Matrix columns: pathway or gene")
	f.String("mode", "binary", "Cell values: binary or count")
	f.Int("workers", 0, "Number of worker goroutines (0 = number of CPUs)")
	f.StringVarP(&outputPath, "output", "o", "-", "Output file, .gz/.lz4 compressed by suffix (default: stdout)")
	f.StringP("format", "f", output.FormatDense, "Output format: dense, triplet")
	f.String("store", "", "Record the run in this DuckDB file")

	for name, key := range annotateKeys {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}

	return cmd
}

// annotateConfig assembles a pipeline configuration from flags and config.
func annotateConfig(sumstats, outputPath string) (pipeline.Config, error) {
	delim, err := parseDelimiter(viper.GetString("gwas.delimiter"))
	if err != nil {
		return pipeline.Config{}, err
	}
	mode, err := matrix.ParseMode(viper.GetString("matrix.mode"))
	if err != nil {
		return pipeline.Config{}, err
	}

	if flank := viper.GetInt64("genes.flank"); flank < 0 {
		return pipeline.Config{}, fmt.Errorf("--flank must not be negative, got %d", flank)
	}

	switch format := viper.GetString("gwas.format"); format {
	case gwas.FormatAuto, gwas.FormatTable, gwas.FormatVCF:
	default:
		return pipeline.Config{}, fmt.Errorf("unknown input format %q (want table or vcf)", format)
	}

	return pipeline.Config{
		SummaryStats: sumstats,
		GWAS: gwas.Options{
			Format:    viper.GetString("gwas.format"),
			Delimiter: delim,
			IDColumn:  viper.GetString("gwas.id_column"),
			MaxP:      viper.GetFloat64("gwas.max_p"),
		},
		GeneSets: viper.GetString("genesets.path"),
		GeneSetOptions: geneset.Options{
			MinSize: viper.GetInt("genesets.min_size"),
			MaxSize: viper.GetInt("genesets.max_size"),
		},
		GTF:          viper.GetString("genes.gtf"),
		Biotypes:     viper.GetStringSlice("genes.biotypes"),
		Flank:        viper.GetInt64("genes.flank"),
		GeneTable:    viper.GetString("genes.table"),
		Kind:         viper.GetString("matrix.kind"),
		Mode:         mode,
		Workers:      viper.GetInt("matrix.workers"),
		Output:       outputPath,
		OutputFormat: viper.GetString("output.format"),
		StorePath:    viper.GetString("store.path"),
	}, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "", "auto":
		return 0, nil
	case "tab", "\\t", "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	case "space", "whitespace", " ":
		return gwas.Whitespace, nil
	case "semicolon", ";":
		return ';', nil
	case "pipe", "|":
		return '|', nil
	default:
		return 0, fmt.Errorf("unknown delimiter %q", s)
	}
}

func printSummary(w io.Writer, res *pipeline.Result) {
	heading := color.New(color.FgCyan, color.Bold)
	st := res.Stats

	heading.Fprintln(w, "Summary statistics")
	fmt.Fprintf(w, "  rows read:        %d\n", st.GWAS.Rows)
	fmt.Fprintf(w, "  unique SNPs:      %d\n", st.GWAS.Unique)
	fmt.Fprintf(w, "  duplicates:       %d\n", st.GWAS.Duplicates)
	if st.GWAS.Filtered > 0 {
		fmt.Fprintf(w, "  p-value filtered: %d\n", st.GWAS.Filtered)
	}

	heading.Fprintln(w, "Mapping")
	if st.Genes > 0 {
		fmt.Fprintf(w, "  GTF genes:        %d\n", st.Genes)
	}
	if st.TableSNP > 0 {
		fmt.Fprintf(w, "  table SNPs:       %d\n", st.TableSNP)
	}
	fmt.Fprintf(w, "  mapped SNPs:      %d\n", st.Matrix.Mapped)

	heading.Fprintln(w, "Matrix")
	fmt.Fprintf(w, "  dimensions:       %d x %d\n", res.Matrix.NumRows(), res.Matrix.NumCols())
	fmt.Fprintf(w, "  annotated SNPs:   %d\n", st.Matrix.Annotated)
	fmt.Fprintf(w, "  non-zero cells:   %d\n", st.Matrix.NNZ)
	if res.RunID != "" {
		color.New(color.FgGreen).Fprintf(w, "  run ID:           %s\n", res.RunID)
	}
}
