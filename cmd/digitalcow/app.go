package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/danielpatrickdp/digital-cow/internal/logging"
	"github.com/danielpatrickdp/digital-cow/internal/state"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// #region app
// globalOptions are the persistent flags every subcommand sees.
type globalOptions struct {
	configPath string
	dbPath     string
	logLevel   string
	logFormat  string
	dimLimit   int
	lnLimit    int
	precision  int
	jsonOut    bool
}

type app struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer
	opts   globalOptions

	logger *slog.Logger
	params herd.Params
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{stdout: stdout, stderr: stderr}
	a.root = &cobra.Command{
		Use:   "digitalcow",
		Short: "Build and inspect dairy cow life-cycle Markov chains",
		Long: `digitalcow enumerates every reachable daily state of a dairy cow under a herd's
management parameters and weighs each one-day transition between them.

Herd parameters come from defaults, then the --config YAML file, then DIGITALCOW_*
environment variables, then the --dim-limit and --ln-limit flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)

	f := a.root.PersistentFlags()
	f.StringVarP(&a.opts.configPath, "config", "c", "", "herd settings YAML file")
	f.StringVar(&a.opts.dbPath, "db", "digitalcow.db", "SQLite database for chains, cow history and the generation log")
	f.StringVar(&a.opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&a.opts.logFormat, "log-format", "text", "log format (text, json)")
	f.IntVar(&a.opts.dimLimit, "dim-limit", 0, "days in milk limit (overrides the herd setting)")
	f.IntVar(&a.opts.lnLimit, "ln-limit", 0, "lactation number limit (overrides the herd setting)")
	f.IntVar(&a.opts.precision, "precision", int(dairy.DefaultPrecision), "decimal places kept for yields and probabilities")
	f.BoolVar(&a.opts.jsonOut, "json", false, "print results as JSON")

	a.root.AddCommand(
		a.newGenerateCmd(),
		a.newInspectCmd(),
		a.newValidateCmd(),
		a.newExportFixtureCmd(),
		a.newReplayCmd(),
		a.newServeCmd(),
		a.newProfileCmd(),
		a.newCowCmd(),
		a.newRemoteCmd(),
	)
	return a
}

// Execute runs the command line until it finishes or the process is interrupted.
func (a *app) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the command line with explicit arguments.
func (a *app) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// #endregion app

// #region setup
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger, err := logging.NewLogger(a.opts.logFormat, a.opts.logLevel, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger

	p, err := herd.Load(a.opts.configPath, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load herd: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("dim-limit") {
		p.DaysInMilkLimit = a.opts.dimLimit
	}
	if flags.Changed("ln-limit") {
		p.LactationNumberLimit = a.opts.lnLimit
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := a.prec().Validate(); err != nil {
		return err
	}
	a.params = p
	return nil
}

func (a *app) prec() dairy.Precision { return dairy.Precision(a.opts.precision) }

// openStore opens the SQLite database, creating the schema on first use.
func (a *app) openStore() (*state.Store, error) {
	return state.NewStore(a.opts.dbPath)
}

// space generates the chain for the configured herd, reporting the run to observer.
func (a *app) space(ctx context.Context, observer cow.Observer) (*cow.Space, error) {
	cache := cow.NewChainCache(a.logger, observer)
	return cache.Get(ctx, a.params, a.params.DaysInMilkLimit, a.params.LactationNumberLimit, a.prec())
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion setup
