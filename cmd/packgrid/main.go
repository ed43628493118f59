package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/packgrid/internal/adapters/storage/sqlite"
	"github.com/hylla/packgrid/internal/app"
	"github.com/hylla/packgrid/internal/config"
	"github.com/hylla/packgrid/internal/domain"
	"github.com/hylla/packgrid/internal/platform"
	"github.com/hylla/packgrid/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests replace it.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the command tree for args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version), fang.WithNotifySignal(os.Interrupt))
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCommand builds the packgrid command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{appName: "packgrid", devMode: version == "dev"}
	if envDev, ok := parseBoolEnv("PACKGRID_DEV_MODE"); ok {
		opts.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("PACKGRID_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:   "packgrid [table]",
		Short: "Browse and edit game data tables with frozen columns and grouped filters",
		Long: `packgrid stores delimited game data exports in SQLite and opens them in a
terminal grid. Columns can be frozen to the left edge, rows filtered by
grouped match rules and sorted, and cells edited in place.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			return withSession(cmd, opts, stderr, "tui", func(s *session) error {
				return runTUI(cmd.Context(), s, ref)
			})
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newImportCommand(opts, stdout, stderr),
		newTablesCommand(opts, stdout, stderr),
		newFilterCommand(opts, stdout, stderr),
		newSetCommand(opts, stdout, stderr),
		newAppendCommand(opts, stdout, stderr),
		newDeleteCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newSnapshotCommand(opts, stdout, stderr),
	)
	return root
}

// session is the opened runtime shared by commands that touch the database.
type session struct {
	cfg    config.Config
	paths  platform.Paths
	logger *runtimeLogger
	svc    *app.Service
}

// resolvePaths resolves OS paths plus the config and database locations, honoring env overrides.
func resolvePaths(opts *globalOptions) (platform.Paths, string, string, bool, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return platform.Paths{}, "", "", false, err
	}
	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("PACKGRID_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("PACKGRID_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	return paths, configPath, dbPath, dbOverridden, nil
}

// withSession loads config, opens logging and storage, runs fn and tears everything down.
func withSession(cmd *cobra.Command, opts *globalOptions, stderr io.Writer, command string, fn func(*session) error) error {
	paths, configPath, dbPath, dbOverridden, err := resolvePaths(opts)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The grid owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.consoleActive() {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()

	s := &session{
		cfg:    cfg,
		paths:  paths,
		logger: logger,
		svc:    app.NewService(repo, uuid.NewString, nil, app.ServiceConfig{LookupSuffix: cfg.Import.LookupSuffix}),
	}
	logger.Info("command flow start", "command", command)
	if err := fn(s); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// runTUI opens the grid on ref, or on the only stored table when ref is empty.
func runTUI(ctx context.Context, s *session, ref string) error {
	if strings.TrimSpace(ref) == "" {
		tables, err := s.svc.ListTables(ctx)
		if err != nil {
			return err
		}
		switch len(tables) {
		case 0:
			return errors.New("no tables stored yet; run `packgrid import <file>` first")
		case 1:
			ref = tables[0].ID
		default:
			names := make([]string, 0, len(tables))
			for _, table := range tables {
				names = append(names, table.Name)
			}
			return fmt.Errorf("table name required, one of: %s", strings.Join(names, ", "))
		}
	}

	m := tui.NewModel(
		s.svc,
		ref,
		tui.WithRuntimeConfig(toTUIRuntimeConfig(s.cfg)),
		tui.WithLogger(s.logger.Component("tui")),
	)
	s.logger.Info("starting tui program loop", "table", ref)
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// toTUIRuntimeConfig maps persisted config values into model options.
func toTUIRuntimeConfig(cfg config.Config) tui.RuntimeConfig {
	source, err := domain.ParseTextSource(cfg.Filter.DefaultTextSource)
	if err != nil {
		source = domain.TextSourcePrimary
	}
	return tui.RuntimeConfig{
		Filter: tui.FilterDefaults{
			Debounce:      time.Duration(cfg.Filter.DebounceMS) * time.Millisecond,
			UseRegex:      cfg.Filter.DefaultUseRegex,
			CaseSensitive: cfg.Filter.DefaultCaseSensitive,
			TextSource:    source,
		},
		Table: tui.TableLayout{
			DefaultColumnWidth: cfg.Table.DefaultColumnWidth,
			MinColumnWidth:     cfg.Table.MinColumnWidth,
			MaxColumnWidth:     cfg.Table.MaxColumnWidth,
			RowHeaderWidth:     cfg.Table.RowHeaderWidth,
		},
		Colors: tui.ColorConfig{
			Key:      cfg.Colors.Key,
			Added:    cfg.Colors.Added,
			Modified: cfg.Colors.Modified,
			Accent:   cfg.Colors.Accent,
			Muted:    cfg.Colors.Muted,
		},
		Keys: tui.KeyConfig{
			Freeze:       cfg.Keys.Freeze,
			UnfreezeAll:  cfg.Keys.UnfreezeAll,
			Filter:       cfg.Keys.Filter,
			Sort:         cfg.Keys.Sort,
			AddFilter:    cfg.Keys.AddFilter,
			RemoveFilter: cfg.Keys.RemoveFilter,
		},
	}
}

// parseBoolEnv reads a boolean environment variable. The second result is false when unset or invalid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
