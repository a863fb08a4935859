package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hylla/kanmap/internal/adapters/server"
	"github.com/hylla/kanmap/internal/adapters/storage/sqlite"
	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/bridge"
	"github.com/hylla/kanmap/internal/config"
	"github.com/hylla/kanmap/internal/platform"
	"github.com/hylla/kanmap/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts serve mode. Tests replace it to avoid binding a port.
var serveCommandRunner = server.Run

// main handles main.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
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
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// globalFlags holds flags shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	devMode    bool
}

// newRootCommand wires the TUI root command and its subcommands.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("KANMAP_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	var viewName string
	root := &cobra.Command{
		Use:           platform.AppName,
		Short:         "Kanban board and mind map over one task list",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := app.ParseView(viewName)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), flags, stderr, "tui", false, func(rt *session) error {
				return runTUI(cmd.Context(), rt, view)
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config TOML")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "path to sqlite database")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level")
	root.PersistentFlags().BoolVar(&flags.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	root.Flags().StringVar(&viewName, "view", "kanban", "initial view: kanban or mindmap")

	root.AddCommand(
		newPathsCommand(flags, stdout),
		newServeCommand(flags, stderr),
		newExportCommand(flags, stdout, stderr),
		newImportCommand(flags, stderr),
		newPushCommand(flags, stderr),
		newPullCommand(flags, stdout, stderr),
	)
	return root
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(flags *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print config, data and log locations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{DevMode: flags.devMode})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", flags.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "log: %s\n", paths.LogPath)
			return nil
		},
	}
}

// newServeCommand runs the HTTP API, MCP and canvas feed endpoints.
func newServeCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
		wsEndpoint  string
		origins     []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP, MCP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), flags, stderr, "serve", true, func(rt *session) error {
				srvCfg := rt.cfg.Server
				if cmd.Flags().Changed("http") {
					srvCfg.HTTPBind = httpBind
				}
				if cmd.Flags().Changed("api-endpoint") {
					srvCfg.APIEndpoint = apiEndpoint
				}
				if cmd.Flags().Changed("mcp-endpoint") {
					srvCfg.MCPEndpoint = mcpEndpoint
				}
				if cmd.Flags().Changed("ws-endpoint") {
					srvCfg.WSEndpoint = wsEndpoint
				}
				if cmd.Flags().Changed("origin") {
					srvCfg.AllowedOrigins = origins
				}
				return runServe(cmd.Context(), rt, srvCfg)
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint")
	cmd.Flags().StringVar(&wsEndpoint, "ws-endpoint", "", "canvas feed WebSocket endpoint")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "allowed browser origin (repeatable)")
	return cmd
}

// newExportCommand writes the board as a widget config JSON document.
func newExportCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the board as widget config JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), flags, stderr, "export", true, func(rt *session) error {
				return runExport(rt.svc, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

// newImportCommand replaces the board from a widget config JSON document.
func newImportCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the board with a widget config JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withSession(cmd.Context(), flags, stderr, "import", true, func(rt *session) error {
				return runImport(cmd.Context(), rt.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input widget config JSON file")
	return cmd
}

// newPushCommand saves the board to the host store once.
func newPushCommand(flags *globalFlags, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Save the board to the configured host store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), flags, stderr, "push", true, func(rt *session) error {
				client, err := rt.bridgeClient()
				if err != nil {
					return err
				}
				if err := client.Save(cmd.Context(), rt.svc.ExportConfig()); err != nil {
					return fmt.Errorf("push board: %w", err)
				}
				rt.logger.Info("board pushed", "endpoint", client.Endpoint())
				return nil
			})
		},
	}
}

// newPullCommand replaces the local board with the host store copy.
func newPullCommand(flags *globalFlags, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local board with the host store copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd.Context(), flags, stderr, "pull", true, func(rt *session) error {
				client, err := rt.bridgeClient()
				if err != nil {
					return err
				}
				cfg, found, err := client.Fetch(cmd.Context())
				if err != nil {
					return fmt.Errorf("pull board: %w", err)
				}
				if !found {
					_, _ = fmt.Fprintln(stdout, "no saved board at", client.Endpoint())
					return nil
				}
				if err := rt.svc.ImportConfig(cmd.Context(), cfg); err != nil {
					return fmt.Errorf("apply pulled board: %w", err)
				}
				if err := rt.svc.Persist(cmd.Context()); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "pulled %d tasks and %d columns\n", len(rt.svc.Tasks(app.ViewKanban)), len(rt.svc.Columns()))
				return nil
			})
		},
	}
}

// session bundles the resolved configuration and opened collaborators for one command.
type session struct {
	cfg    config.Config
	logger *runtimeLogger
	svc    *app.Service
}

// bridgeClient builds a host store client, failing when no endpoint is configured.
func (rt *session) bridgeClient() (*bridge.Client, error) {
	if strings.TrimSpace(rt.cfg.Bridge.Endpoint) == "" {
		return nil, errors.New("bridge.endpoint is not configured")
	}
	timeout, err := rt.cfg.Bridge.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return bridge.NewClient(bridge.Options{
		Endpoint: rt.cfg.Bridge.Endpoint,
		Token:    rt.cfg.Bridge.Token,
		Timeout:  timeout,
	}), nil
}

// withSession resolves config, opens logging and storage, loads the board and runs fn.
func withSession(ctx context.Context, flags *globalFlags, stderr io.Writer, command string, console bool, fn func(*session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := platform.DefaultPathsWithOptions(platform.Options{DevMode: flags.devMode})
	if err != nil {
		return err
	}

	configPath := strings.TrimSpace(flags.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("KANMAP_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(flags.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("KANMAP_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	if level := strings.TrimSpace(flags.logLevel); level != "" {
		cfg.Logging.Level = level
	}

	devLogPath := ""
	if flags.devMode && cfg.Logging.DevFile {
		devLogPath = paths.LogPath
	}
	logger, err := newRuntimeLogger(stderr, platform.AppName, cfg.Logging.Level, devLogPath)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	// The TUI owns the terminal; runtime logs go to the dev file only.
	logger.SetConsoleEnabled(console)
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && console {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("configuration loaded", "command", command, "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	svcCfg, err := cfg.ServiceConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
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

	svc := app.NewService(repo, uuid.NewString, nil, svcCfg)
	if err := svc.Load(ctx); err != nil {
		logger.Error("board load failed", "err", err)
		return fmt.Errorf("load board: %w", err)
	}
	logger.Debug("board loaded", "columns", len(svc.Columns()), "tasks", len(svc.Tasks(app.ViewKanban)))

	rt := &session{cfg: cfg, logger: logger, svc: svc}
	logger.Info("command flow start", "command", command)
	if err := fn(rt); err != nil {
		logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	logger.Info("command flow complete", "command", command)
	return nil
}

// startBackground subscribes the local persister and, when configured, the host
// autosaver. The returned stop function drains both and writes a final snapshot.
func startBackground(ctx context.Context, rt *session) (*bridge.AutoSaver, func()) {
	bgCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	persist := newPersister(rt.svc, rt.logger.Component("store"))
	rt.svc.Subscribe(persist.Listener())
	wg.Add(1)
	go func() {
		defer wg.Done()
		persist.Run(bgCtx)
	}()

	var saver *bridge.AutoSaver
	if rt.cfg.Bridge.AutoSave && strings.TrimSpace(rt.cfg.Bridge.Endpoint) != "" {
		client, err := rt.bridgeClient()
		if err != nil {
			rt.logger.Warn("host autosave disabled", "err", err)
		} else {
			saver = bridge.NewAutoSaver(rt.svc, client, rt.logger.Component("bridge"))
			rt.svc.Subscribe(saver.Listener())
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = saver.Run(bgCtx)
			}()
			rt.logger.Info("host autosave enabled", "endpoint", client.Endpoint())
		}
	}

	return saver, func() {
		cancel()
		wg.Wait()
		if err := rt.svc.Persist(context.Background()); err != nil {
			rt.logger.Error("final board save failed", "err", err)
		}
	}
}

// runTUI runs the interactive board until the user quits.
func runTUI(ctx context.Context, rt *session, view app.View) error {
	_, stop := startBackground(ctx, rt)
	defer stop()

	m := tui.NewModel(rt.svc, tui.WithView(view))
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// runServe serves the board until ctx is canceled.
func runServe(ctx context.Context, rt *session, srvCfg config.ServerConfig) error {
	saver, stop := startBackground(ctx, rt)
	defer stop()

	deps := server.Dependencies{
		Board:   rt.svc,
		Changes: rt.svc,
		Logger:  rt.logger.Component("server"),
	}
	if saver != nil {
		deps.Saver = saver
	}
	return serveCommandRunner(ctx, server.Config{
		HTTPBind:       srvCfg.HTTPBind,
		APIEndpoint:    srvCfg.APIEndpoint,
		MCPEndpoint:    srvCfg.MCPEndpoint,
		WSEndpoint:     srvCfg.WSEndpoint,
		ServerName:     platform.AppName,
		ServerVersion:  version,
		AllowedOrigins: srvCfg.AllowedOrigins,
	}, deps)
}

// runExport writes the widget config to outPath or stdout.
func runExport(svc *app.Service, outPath string, stdout io.Writer) error {
	encoded, err := json.MarshalIndent(svc.ExportConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode widget config json: %w", err)
	}
	encoded = append(encoded, '\n')

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write widget config to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport replaces the board from inPath and persists it.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	var cfg app.WidgetConfig
	if err := json.Unmarshal(content, &cfg); err != nil {
		return fmt.Errorf("decode widget config json: %w", err)
	}
	if err := svc.ImportConfig(ctx, cfg); err != nil {
		return fmt.Errorf("import widget config: %w", err)
	}
	return svc.Persist(ctx)
}

// parseBoolEnv parses input into a normalized form.
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
