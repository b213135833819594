package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fd-manager/fdm/internal/buildinfo"
	"github.com/fd-manager/fdm/internal/config"
	"github.com/fd-manager/fdm/internal/export"
	"github.com/fd-manager/fdm/internal/model"
	"github.com/fd-manager/fdm/internal/normalize"
	"github.com/fd-manager/fdm/internal/sheet"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	verbose    bool
	now        func() time.Time
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globalOptions{now: time.Now})
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "fdm",
		Short:   "Fixed deposit manager",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "file of environment overrides")
	flags.BoolVar(&opts.verbose, "verbose", false, "log debug detail to stderr")

	rootCmd.AddCommand(
		newInitCommand(),
		newServeCommand(opts),
		newInspectCommand(opts),
		newQueryCommand(opts),
		newSummaryCommand(opts),
		newPivotCommand(opts),
		newSharesCommand(opts),
		newAddCommand(opts),
		newRenewCommand(opts),
		newExportCommand(opts),
	)

	return rootCmd
}

// env is what a command needs once flags are parsed.
type env struct {
	cfg *config.Config
	log *slog.Logger
	out io.Writer
	now func() time.Time
}

func (o *globalOptions) setup(cmd *cobra.Command) (*env, error) {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debug("config loaded", "path", o.configPath)
	return &env{cfg: cfg, log: log, out: cmd.OutOrStdout(), now: o.now}, nil
}

// load reads and normalizes a spreadsheet, logging what was dropped.
func (e *env) load(path string) (normalize.Result, error) {
	raw, err := sheet.DefaultRegistry().ReadFile(path)
	if err != nil {
		return normalize.Result{}, err
	}
	res, err := normalize.Normalize(raw, e.cfg.NormalizeOptions())
	if err != nil {
		return normalize.Result{}, fmt.Errorf("normalizing %s: %w", path, err)
	}
	e.log.Debug("loaded", "file", path, "summary", res.Diagnostics.Summary())
	for _, d := range res.Diagnostics.Dropped {
		e.log.Debug("row dropped", "row", d.Row, "missing", d.Missing)
	}
	return res, nil
}

// save exports t to path. A blank format is taken from the path's
// extension, then from the config.
func (e *env) save(path string, t model.Table, format string) error {
	if format == "" {
		format = sheet.FormatOf(path)
	}
	if format == "" {
		format = e.cfg.Export.Format
	}
	if _, err := export.WriterFor(format); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.Export(f, t, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	e.log.Debug("exported", "file", path, "records", t.Len())
	return nil
}
