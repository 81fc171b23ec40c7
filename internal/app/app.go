// Package app assembles and runs the battle server.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"skirmish/catalog"
	"skirmish/internal/config"
	"skirmish/internal/host"
	servernet "skirmish/internal/net"
	"skirmish/internal/net/ws"
	"skirmish/internal/observability"
	"skirmish/internal/telemetry"
	"skirmish/logging"
	loggingSinks "skirmish/logging/sinks"
)

// shutdownTimeout bounds the graceful stop of the listener and the battles.
const shutdownTimeout = 10 * time.Second

type Options struct {
	Logger telemetry.Logger
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Run serves until ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options) error {
	telemetryLogger := opts.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	cfg, err := config.Load(opts.Getenv, telemetryLogger)
	if err != nil {
		return err
	}

	sinks, closeSinks, err := buildSinks(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeSinks()
	router, err := logging.NewRouter(nil, cfg.Logging, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := tracerProvider.Shutdown(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to flush traces: %v", cerr)
		}
	}()

	dex, err := catalog.Load(cfg.CatalogPaths...)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	secret := []byte(cfg.SeatSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate seat secret: %w", err)
		}
		telemetryLogger.Printf("no seat secret configured; tokens will not survive a restart")
	}
	tokens, err := host.NewTokens(secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	counters := telemetry.NewCounters()
	manager, err := host.NewManager(host.Config{
		Dex:             dex,
		Formats:         cfg.LookupFormat,
		Tokens:          tokens,
		MaxBattles:      cfg.MaxBattles,
		ChoiceBuffer:    cfg.ChoiceBuffer,
		DisconnectGrace: cfg.DisconnectGrace,
		Retention:       cfg.Retention,
		Publisher:       router,
		Metrics:         counters,
		Logger:          telemetryLogger,
		TracerProvider:  tracerProvider,
	})
	if err != nil {
		return err
	}

	handlerCfg := servernet.HTTPHandlerConfig{
		Logger:   telemetryLogger,
		Counters: counters,
		Catalog:  dex,
		WS:       ws.NewHandler(manager, ws.HandlerConfig{Logger: telemetryLogger}),
	}
	if cfg.Pprof {
		handlerCfg.Extend = observability.MountPprof
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           servernet.NewHTTPHandler(manager, handlerCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serr := srv.Shutdown(stopCtx)
		merr := manager.Close(stopCtx)
		return errors.Join(serr, merr)
	})
	return g.Wait()
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, func(), error) {
	var (
		sinks   []logging.NamedSink
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(os.Stdout, cfg.Console)})
		case "json":
			w := io.Writer(os.Stdout)
			if cfg.JSON.FilePath != "" {
				f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					closeAll()
					return nil, nil, fmt.Errorf("failed to open json log: %w", err)
				}
				closers = append(closers, f)
				w = f
			}
			sinks = append(sinks, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(w, cfg.JSON.FlushInterval)})
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return sinks, closeAll, nil
}
