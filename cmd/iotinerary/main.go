package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iotinerary/internal/api"
	"iotinerary/pkg/apisession"
	"iotinerary/pkg/config"
	"iotinerary/pkg/logging"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/models"
	"iotinerary/pkg/notify"
	"iotinerary/pkg/probe"
	"iotinerary/pkg/request"
	"iotinerary/pkg/session"
	"iotinerary/pkg/version"
)

const defaultConfigPath = "configs/iotinerary.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	traceFlag  = flag.Bool("trace", false, "Log every engine bridge message at debug level")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	logging.SetTrace(*traceFlag)
	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("iotinerary started", "version", version.Version, "engine", appCfg.Engine.Provider)

	fetcher := request.New(nil)
	region, err := loadRegion(ctx, appCfg, fetcher)
	if err != nil {
		return err
	}

	// Startup Probes
	results := probe.Run(ctx, probe.Startup(appCfg, region, fetcher))
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	store := session.NewManager(overlayDefaults(appCfg))
	notices := notify.NewCenter(appCfg.Notices.History)
	layer := models.NewLayer(spots(appCfg))

	// Event loop owning the view
	loop := mapview.NewLoop(256)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go func() {
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Event loop stopped", "error", err)
		}
	}()

	eng, err := newEngine(appCfg, loop)
	if err != nil {
		return err
	}

	view, err := mapview.New(mapview.Deps{
		Factory:    eng.factory,
		Region:     region,
		Store:      store,
		Notices:    notices,
		Models:     layer,
		Dispatcher: loop,
	}, viewSettings(appCfg))
	if err != nil {
		return fmt.Errorf("failed to create map view: %w", err)
	}
	if eng.bridge != nil {
		eng.bridge.OnResize = func() {
			if err := view.Resize(); err != nil {
				slog.Debug("Resize ignored", "error", err)
			}
		}
	}

	ctrl := mapview.NewController(loop, view)
	if err := ctrl.Initialize(ctx, appCfg.Map.Container); err != nil {
		// The failure is published as status and notice; keep serving it.
		slog.Error("Map construction failed", "error", err)
	}

	stream := api.NewStreamHandler(store, notices)
	defer stream.Close()

	var engineH http.Handler
	if eng.bridge != nil {
		engineH = eng.bridge
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(appCfg.Server.Address,
		api.NewMapHandler(ctrl, store, layer, region),
		api.NewOverlayHandler(ctrl, store),
		api.NewNoticeHandler(notices, apisession.New(30*time.Minute)),
		stream,
		engineH,
		shutdownFunc,
	)
	srv.Handler = loggingMiddleware(srv.Handler)

	serveErr := runServerLifecycle(ctx, srv, quit)

	teardownCtx, cancelTeardown := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelTeardown()
	if err := ctrl.Teardown(teardownCtx); err != nil {
		slog.Warn("Map teardown incomplete", "error", err)
	}
	return serveErr
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
