package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/bann/internal/duckdb"
	"github.com/inodb/bann/internal/output"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and query stored annotation runs",
		Long:  "Inspect annotation matrices recorded with 'bann annotate --store'.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &usageError{errors.New("subcommand required")}
		},
	}
	cmd.PersistentFlags().String("store", "", "DuckDB run store (default: store.path from config)")

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())
	cmd.AddCommand(newRunsDeleteCmd(a))

	return cmd
}

// openStore opens the run store named by --store or the config.
func openStore(cmd *cobra.Command) (*duckdb.Store, error) {
	path, _ := cmd.Flags().GetString("store")
	if path == "" {
		path = viper.GetString("store.path")
	}
	if path == "" {
		return nil, &usageError{errors.New("no run store configured (use --store or set store.path)")}
	}
	return duckdb.Open(path)
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs, oldest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tKIND\tMODE\tROWS\tCOLS\tNONZERO")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Kind, r.Mode, r.Rows, r.Cols, r.NNZ)
			}
			return tw.Flush()
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	var (
		snp     string
		pathway string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a stored run",
		Long: `Show a stored run. With --snp, list the columns annotated for that SNP; with
--pathway, list the SNPs annotated to that column; with --format, write the
whole matrix to stdout.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if snp != "" && pathway != "" {
				return &usageError{errors.New("--snp and --pathway are mutually exclusive")}
			}

			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			id := args[0]
			w := cmd.OutOrStdout()

			switch {
			case snp != "":
				cells, err := store.PathwaysForSNP(ctx, id, snp)
				if err != nil {
					return err
				}
				for _, c := range cells {
					fmt.Fprintf(w, "%s\t%d\n", c.Label, c.Value)
				}
				return nil

			case pathway != "":
				cells, err := store.SNPsInPathway(ctx, id, pathway)
				if err != nil {
					return err
				}
				for _, c := range cells {
					fmt.Fprintf(w, "%s\t%d\n", c.Label, c.Value)
				}
				return nil

			case format != "":
				m, err := store.LoadMatrix(ctx, id)
				if err != nil {
					return err
				}
				mw, err := output.NewMatrixWriter(format, w)
				if err != nil {
					return &usageError{err}
				}
				if err := mw.Write(m); err != nil {
					return err
				}
				return mw.Flush()
			}

			run, err := store.GetRun(ctx, id)
			if err != nil {
				return err
			}
			heading := color.New(color.FgCyan, color.Bold)
			heading.Fprintf(w, "Run %s\n", run.ID)
			fmt.Fprintf(w, "  created:  %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(w, "  kind:     %s\n", run.Kind)
			fmt.Fprintf(w, "  mode:     %s\n", run.Mode)
			fmt.Fprintf(w, "  size:     %d x %d (%d non-zero)\n", run.Rows, run.Cols, run.NNZ)
			if len(run.Inputs) > 0 {
				heading.Fprintln(w, "Inputs")
				for _, in := range run.Inputs {
					fmt.Fprintf(w, "  %-14s %s (%d bytes, modified %s)\n",
						in.Role, in.Path, in.Size, in.ModTime.Local().Format(time.RFC3339))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snp, "snp", "", "List the annotated columns of this SNP")
	cmd.Flags().StringVar(&pathway, "pathway", "", "List the SNPs annotated to this column")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Write the full matrix: dense, triplet")

	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("deleted run", zap.String("run_id", args[0]))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}
