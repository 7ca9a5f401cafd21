// Package main provides the bann command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configName is the config file base name, looked up in the home directory.
const configName = ".bann"

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "Run 'bann --help' for usage.\n")
			return ExitUsage
		}
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}
	return ExitSuccess
}

// app holds state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "bann",
		Short: "bann - SNP to pathway annotation matrices for GWAS",
		Long: `bann builds SNP x pathway annotation matrices from GWAS summary statistics,
a SNP to gene mapping and MSigDB gene sets (GMT).`,
		Example: `  # Build a binary SNP x pathway matrix
  bann annotate --gtf gencode.v46.annotation.gtf.gz --genesets msigdb.gmt sumstats.tsv.gz

  # Fetch GENCODE gene annotations once, then map by position automatically
  bann download --assembly GRCh38
  bann annotate --genesets msigdb.gmt sumstats.tsv.gz

  # Print the first gene set of a GMT file
  bann pathways head msigdb.gmt`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			a.logger = newLogger(cmd.ErrOrStderr(), a.verbose)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &usageError{errors.New("command required")}
		},
	}
	cmd.SetVersionTemplate("bann version {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/.bann.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newAnnotateCmd(a))
	cmd.AddCommand(newDownloadCmd(a))
	cmd.AddCommand(newPathwaysCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// usageArgs wraps an argument validator so its failures exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix("BANN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		viper.SetConfigFile(filepath.Join(home, configName+".yaml"))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", viper.ConfigFileUsed(), err)
	}
	return nil
}

// newLogger returns a console logger writing to w.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core)
}
