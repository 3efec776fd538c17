package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/config"
	httpapi "github.com/mrlokans/lingua/internal/http"
	"github.com/mrlokans/lingua/internal/logging"
)

// Handler builds the bridge handler: the gin router behind CORS for the
// renderer origins.
func (a *App) Handler() http.Handler {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Registry:       a.ipc,
		Hub:            a.hub,
		Checks:         a.HealthChecks(),
		Metrics:        a.metrics,
		Token:          a.cfg.Bridge.Token,
		AllowedOrigins: a.cfg.Bridge.AllowedOrigins,
		Version:        a.version,
		Logger:         a.log,
	})

	return cors.Handler(cors.Options{
		AllowedOrigins: a.cfg.Bridge.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})(router)
}

// Serve starts the bridge server and the init phases, then blocks until ctx
// is done or the server fails. Shutdown is bounded by the configured timeout.
func (a *App) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.HTTP.Host, strconv.Itoa(int(a.cfg.HTTP.Port)))
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("starting bridge server", zap.String("addr", addr), zap.Bool("auth", a.cfg.Bridge.Token != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// The server answers app:* channels while the phases run.
	if err := a.phases.Start(a.runCtx); err != nil {
		a.log.Error("start initialization", zap.Error(err))
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("listen on %s: %w", addr, err)
		}
	}

	timeout := time.Duration(a.cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	a.log.Info("shutting down", zap.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown does not track hijacked connections, so renderers are closed first.
	a.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}
	a.Shutdown(shutdownCtx)

	a.log.Info("server exiting")
	return runErr
}

// Run loads logging from cfg, builds the app and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	app, err := New(cfg, log, version)
	if err != nil {
		return err
	}
	log.Info("starting lingua", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx)
}
