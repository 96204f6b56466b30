//go:build !lambda

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ro-array-designer/internal/optimizer"
)

// ── Global flags ────────────────────────────────────────────────────

var (
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	jsonOut    bool
	showStages int
	workers    int
	batchLimit int
	listenAddr string
	toolConfig ToolConfig
	logger     *logrus.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ro-array-designer",
		Short: "Size reverse osmosis vessel arrays for a recovery target",
		Long: `ro-array-designer searches vessel counts per stage, rebalances flux
across stages and optionally adds a concentrate recycle loop, and lists every
array that reaches the requested recovery.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML tool config (log level, tuning overrides, listen address)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (text or json)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging and stack traces on errors")

	root.AddCommand(newDesignCmd(), newBatchCmd(), newServeCmd(), newDefaultsCmd())
	return root
}

// setup loads the tool config and builds the logger. Flags win over the file.
func setup(_ *cobra.Command, _ []string) error {
	c, err := LoadToolConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if verbose {
		c.LogLevel = "debug"
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
	if workers > 0 {
		c.Tuning.Workers = workers
	}
	if batchLimit > 0 {
		c.BatchLimit = batchLimit
	}
	if listenAddr != "" {
		c.Listen = listenAddr
	}
	l, err := c.newLogger()
	if err != nil {
		return err
	}
	toolConfig, logger = c, l
	return nil
}

// currentDesigner builds a designer from the config loaded by setup.
func currentDesigner() designer {
	return newDesigner(toolConfig, logrus.NewEntry(logger))
}

// ── Commands ────────────────────────────────────────────────────────

func newDesignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "design <spec.json|spec.yaml>",
		Short: "Design arrays for one system spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := LoadSpec(args[0])
			if err != nil {
				return err
			}
			res, err := currentDesigner().run(spec)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printTable(cmd.OutOrStdout(), res, showStages)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	cmd.Flags().IntVar(&showStages, "show", 3, "stage detail for the first N configurations (0 = all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "recycle sweep workers (0 = GOMAXPROCS)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <specs.json|specs.yaml>",
		Short: "Design arrays for a list of named specs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := LoadBatch(args[0])
			if err != nil {
				return err
			}
			items, err := currentDesigner().runBatch(cmd.Context(), specs, toolConfig.BatchLimit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			printBatch(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output results as JSON")
	cmd.Flags().IntVar(&batchLimit, "limit", 0, "specs designed concurrently (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "recycle sweep workers per spec (0 = GOMAXPROCS)")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve design requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, toolConfig.Listen, currentDesigner())
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&workers, "workers", 0, "recycle sweep workers per request (0 = GOMAXPROCS)")
	return cmd
}

func newDefaultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "defaults <brackish|seawater>",
		Short:     "Print the default constants for a membrane type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(optimizer.Brackish), string(optimizer.Seawater)},
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := optimizer.DefaultsFor(optimizer.MembraneType(args[0]))
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), def)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(def)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON instead of YAML")
	return cmd
}

// ── Entry point ─────────────────────────────────────────────────────

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var ge *goerrors.Error
	if verbose && errors.As(err, &ge) {
		fmt.Fprintln(os.Stderr, ge.ErrorStack())
	}
	os.Exit(exitCode(err))
}
