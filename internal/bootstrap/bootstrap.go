package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	commandinadapter "memestickers/internal/modules/command/adapter/in"
	commandoutadapter "memestickers/internal/modules/command/adapter/out"
	commandin "memestickers/internal/modules/command/port/in"
	commandusecase "memestickers/internal/modules/command/usecase"
	packinadapter "memestickers/internal/modules/pack/adapter/in"
	packoutadapter "memestickers/internal/modules/pack/adapter/out"
	packservice "memestickers/internal/modules/pack/service"
	packusecase "memestickers/internal/modules/pack/usecase"
	sessionoutadapter "memestickers/internal/modules/session/adapter/out"
	sessionout "memestickers/internal/modules/session/port/out"
	sessionservice "memestickers/internal/modules/session/service"
	sessionusecase "memestickers/internal/modules/session/usecase"
	"memestickers/internal/platform/clock"
	"memestickers/internal/platform/config"
	"memestickers/internal/platform/id"
	"memestickers/internal/platform/lockfile"
	"memestickers/internal/platform/logging"
	"memestickers/internal/platform/metrics"
	"memestickers/internal/platform/retry"
	"memestickers/internal/platform/tx"
	uiapp "memestickers/internal/ui/app"
)

const metricsNamespace = "memestickers"

type Options struct {
	// Logger defaults to one built from the config's log level and format.
	Logger *slog.Logger
	// Metrics defaults to Prometheus when a metrics address is configured.
	Metrics metrics.Metrics
}

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	PackCLI  packinadapter.CLIHandler
	ChatCLI  commandinadapter.CLIHandler
	Commands commandin.Usecase

	packs    *packservice.PackService
	updater  *packservice.AutoUpdater
	sessions *sessionservice.SessionService
	closers  []func() error
}

// New wires every module against cfg and takes the data directory lock.
// Packs are not read until Load or Serve.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			return nil, err
		}
		logger = l
	}
	m := opts.Metrics
	if m == nil {
		if cfg.MetricsAddr != "" {
			m = metrics.NewProm(metricsNamespace)
		} else {
			m = metrics.Noop{}
		}
	}

	app := &App{Config: cfg, Logger: logger}
	lock, err := lockfile.Acquire(cfg.LockPath)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, lock.Release)
	ready := false
	defer func() {
		if !ready {
			_ = app.Close()
		}
	}()

	clk := clock.SystemClock{}
	journal, err := packoutadapter.NewSQLiteEventJournal(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open event journal: %w", err)
	}
	app.closers = append(app.closers, journal.Close)

	hub := packoutadapter.NewHTTPHubClient(packoutadapter.HubClientOptions{
		HubURL:      cfg.HubURL,
		IndexURL:    cfg.HubIndexURL,
		RawTemplate: cfg.GitHubRawTemplate,
		Timeout:     cfg.HTTPTimeout,
		CacheTTL:    cfg.CacheTTL,
		Clock:       clk,
	})
	packLogger := logger.With("module", "pack")
	app.packs = packservice.NewPackService(packservice.Options{
		Repo:            packoutadapter.NewFSPackRepository(cfg.PacksDir),
		Hub:             hub,
		Updater:         packoutadapter.NewZipUpdater(hub),
		Configs:         packoutadapter.NewJSONConfigStore(cfg.ConfigPath),
		Journal:         journal,
		Clock:           clk,
		IDs:             id.UUID{},
		Logger:          packLogger,
		Metrics:         m,
		Retry:           retry.Policy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay, Backoff: cfg.RetryBackoff},
		Locks:           tx.NewKeyedManager(),
		DataDir:         cfg.DataDir,
		TempDir:         cfg.TempDir,
		ReleaseTemplate: cfg.GitHubReleaseTemplate,
		AutoUpdate:      cfg.AutoUpdate,
		ForceUpdate:     cfg.ForceUpdate,
	})
	app.packs.OnPackStateChange(journal)
	app.packs.OnPackStateChange(packoutadapter.NewMetricsListener(m))
	app.packs.OnPackStateChange(packoutadapter.NewLogListener(packLogger))
	packUC := packusecase.NewInteractor(app.packs)
	app.updater = packservice.NewAutoUpdater(app.packs, packservice.AutoUpdaterOptions{
		Enabled:        cfg.AutoUpdate,
		Force:          cfg.ForceUpdate,
		Interval:       cfg.AutoUpdateInterval,
		MaxConcurrency: cfg.MaxConcurrency,
		Logger:         packLogger,
	})

	var repo sessionout.SessionRepository
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		client, err := sessionoutadapter.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		repo = sessionoutadapter.NewRedisSessionRepository(client, clk)
	default:
		repo = sessionoutadapter.NewMemorySessionRepository()
	}
	app.sessions = sessionservice.NewSessionService(clk, repo, cfg.SessionTimeout, logger.With("module", "session"))
	sessionUC := sessionusecase.NewInteractor(app.sessions)

	router := commandusecase.NewRouter(commandusecase.Options{
		Packs:        packUC,
		Sessions:     sessionUC,
		Renderer:     commandoutadapter.NewPassthroughRenderer(),
		Tx:           tx.NewKeyedManager(),
		Metrics:      m,
		Clock:        clk,
		Logger:       logger.With("module", "command"),
		Prefix:       cfg.CommandPrefix,
		IsAdmin:      cfg.IsAdmin,
		FontFamily:   cfg.FontFamily,
		FontSize:     cfg.FontSize,
		TextColor:    cfg.Colors.Text,
		OutlineColor: cfg.Colors.Outline,
	})
	app.Commands = router
	app.PackCLI = packinadapter.NewCLIHandler(packUC)
	app.ChatCLI = commandinadapter.NewCLIHandler(router)

	ready = true
	return app, nil
}

// Load reads every pack from disk and rebuilds the command table.
func (a *App) Load(ctx context.Context) error {
	if err := a.packs.Reload(ctx); err != nil {
		return err
	}
	return a.Commands.Refresh(ctx)
}

// Serve loads the packs and then runs the background work until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Load(ctx); err != nil {
		return err
	}
	return a.RunBackground(ctx)
}

// RunBackground runs the auto updater, the session sweeper and the metrics
// endpoint until ctx is done. It expects Load to have run.
func (a *App) RunBackground(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.updater.Loop(groupCtx)
	})
	group.Go(func() error {
		a.sessions.RunSweeper(groupCtx, a.Config.SessionSweepInterval)
		return nil
	})
	if a.Config.MetricsAddr != "" {
		group.Go(func() error {
			return a.serveMetrics(groupCtx)
		})
	}
	return group.Wait()
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              a.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "serving metrics", "addr", a.Config.MetricsAddr)
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunChat runs the terminal chat console against port until the user quits.
func RunChat(port uiapp.Port, opts uiapp.Options) error {
	program := tea.NewProgram(uiapp.NewModel(port, opts), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
