package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/bann/internal/geneset"
	"github.com/inodb/bann/internal/output"
)

func newPathwaysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pathways",
		Short: "Inspect gene set (GMT) files",
		Long:  "Inspect MSigDB-style gene set files. The path defaults to genesets.path from the config.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &usageError{fmt.Errorf("subcommand required")}
		},
	}

	cmd.AddCommand(newPathwaysHeadCmd(a))
	cmd.AddCommand(newPathwaysStatsCmd(a))
	cmd.AddCommand(newPathwaysGeneCmd(a))

	return cmd
}

// loadGeneSets reads the GMT file named by args, falling back to the configured path.
func loadGeneSets(a *app, args []string) (*geneset.Collection, geneset.Stats, error) {
	path := viper.GetString("genesets.path")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = geneset.DefaultPath
	}

	c, st, err := geneset.ReadPathwayFile(path, geneset.Options{})
	if err != nil {
		return nil, st, err
	}
	a.logger.Debug("loaded gene sets", zap.String("path", path), zap.Int("sets", c.Len()))
	return c, st, nil
}

func newPathwaysHeadCmd(a *app) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "head [gmt-file]",
		Short: "Print the first gene sets",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := loadGeneSets(a, args)
			if err != nil {
				return err
			}

			w := output.NewGeneSetWriter(cmd.OutOrStdout())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for i := 0; i < n && i < c.Len(); i++ {
				if err := w.Write(c.At(i)); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 1, "Number of gene sets to print")

	return cmd
}

func newPathwaysStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [gmt-file]",
		Short: "Summarize gene set sizes",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, st, err := loadGeneSets(a, args)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprintln(w, "Gene sets")
			fmt.Fprintf(w, "  sets:            %d\n", c.Len())
			fmt.Fprintf(w, "  distinct genes:  %d\n", len(c.Genes()))
			fmt.Fprintf(w, "  duplicate genes: %d\n", st.DuplicateGenes)
			if c.Len() == 0 {
				return nil
			}

			sizes := make([]float64, c.Len())
			for i, s := range c.Sets() {
				sizes[i] = float64(s.Size())
			}
			sort.Float64s(sizes)

			fmt.Fprintf(w, "  min size:        %.0f\n", sizes[0])
			fmt.Fprintf(w, "  median size:     %.1f\n", stat.Quantile(0.5, stat.LinInterp, sizes, nil))
			fmt.Fprintf(w, "  mean size:       %.1f\n", stat.Mean(sizes, nil))
			fmt.Fprintf(w, "  max size:        %.0f\n", sizes[len(sizes)-1])
			return nil
		},
	}
}

func newPathwaysGeneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gene <symbol> [gmt-file]",
		Short: "List the gene sets containing a gene",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := loadGeneSets(a, args[1:])
			if err != nil {
				return err
			}

			for _, i := range c.SetsForGene(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), c.At(i).Name)
			}
			return nil
		},
	}
}
