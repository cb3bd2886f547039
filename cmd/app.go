// Package cmd implements the conciliador command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Aashish23092/conciliador/client"
	"github.com/Aashish23092/conciliador/config"
	"github.com/Aashish23092/conciliador/logging"
	"github.com/Aashish23092/conciliador/metrics"
	"github.com/Aashish23092/conciliador/service"
	"github.com/Aashish23092/conciliador/store"
)

// App holds the state shared by every command.
type App struct {
	version string

	configFile string
	logLevel   string
	verbose    bool
	quiet      bool

	cfg       *config.Config
	logger    *zerolog.Logger
	logCloser io.Closer
	metrics   *metrics.Registry
	out       io.Writer
}

func NewApp(version string) *App {
	return &App{
		version: version,
		logger:  logging.Nop(),
		out:     os.Stdout,
	}
}

// Execute runs the command line with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.out)
	defer a.closeLog()
	return rootCmd.ExecuteContext(ctx)
}

// closeLog releases the log output opened by setupCommand.
func (a *App) closeLog() {
	if a.logCloser == nil {
		return
	}
	if err := a.logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log output: %v\n", err)
	}
	a.logCloser = nil
	a.logger = logging.Nop()
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "conciliador",
		Short:   "Reconcile purchase orders and invoices into expedientes",
		Version: a.version,
		Long: `conciliador extracts order lines from purchase order PDFs, finds order and
case numbers in invoice PDFs, marks workbook rows as invoiced and keeps one
expediente per case in a document store.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is ./conciliador.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")

	rootCmd.AddCommand(
		a.newExtractCommand(),
		a.newDetectCommand(),
		a.newSyncCommand(),
		a.newExportCommand(),
		a.newCompareCommand(),
		a.newServeCommand(),
	)
	return rootCmd
}

// setupCommand loads configuration and builds the logger before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}

	switch {
	case a.logLevel != "":
		cfg.Log.Level = a.logLevel
	case a.verbose:
		cfg.Log.Level = "debug"
	case a.quiet:
		cfg.Log.Level = "warn"
	}

	logger, closer := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	a.cfg = cfg
	a.logger = &logger
	a.logCloser = closer
	a.metrics = metrics.NewRegistry()
	cmd.SetContext(logging.WithLogger(cmd.Context(), a.logger))
	return nil
}

// withStore opens the configured store, runs fn and closes the store.
func (a *App) withStore(fn func(store.Store) error) error {
	st, err := store.Open(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("close store")
		}
	}()
	return fn(st)
}

func (a *App) syncService(st store.Store, publisher client.EventPublisher) *service.SyncService {
	return service.NewSyncService(
		service.NewTransformer(a.cfg.ClientID, a.cfg.Source, a.cfg.Version, a.logger),
		service.NewMergeService(st, publisher, a.metrics, a.logger),
		st,
		a.logger,
	)
}
