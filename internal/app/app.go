package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"loanprep/internal/config"
	"loanprep/internal/infrastructure"
	"loanprep/internal/operations"
)

const shutdownTimeout = 5 * time.Second

// Application holds the components shared by a tool run
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	OTel    *infrastructure.OTelProviders
	Metrics *infrastructure.PipelineMetrics
	Runner  *operations.Runner
	Router  *chi.Mux
	Server  *http.Server

	startTime time.Time
	mu        sync.Mutex
	results   []*operations.Result
	listener  net.Listener
}

// New initializes logging and telemetry from cfg and builds the runner
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(otelProviders.Meter)
	if err != nil {
		otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		OTel:      otelProviders,
		Metrics:   metrics,
		startTime: time.Now(),
	}
	a.Runner = operations.NewRunner(logger,
		operations.WithMetrics(metrics),
		operations.WithTracer(otelProviders.Tracer),
		operations.WithProgressInterval(cfg.Pipeline.ProgressInterval),
		operations.WithSampleLimit(cfg.Pipeline.SampleLimit))

	a.setupRouter()
	return a, nil
}

// Start serves the router on telemetry.metrics_addr; it does nothing when
// no address is configured.
func (a *Application) Start(ctx context.Context) error {
	addr := a.Config.Telemetry.MetricsAddr
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	a.listener = ln
	a.Server = &http.Server{
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Metrics server error", slog.String("error", err.Error()))
		}
	}()

	a.Logger.InfoContext(ctx, "Serving metrics", slog.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the address the server listens on, or "" when not started
func (a *Application) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Stop shuts down the server and telemetry and closes the log file
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}
	if a.OTel != nil {
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown error: %w", err))
		}
	}

	a.Logger.InfoContext(ctx, "Shutdown complete",
		slog.String("uptime", time.Since(a.startTime).Round(time.Millisecond).String()))
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Record keeps finished run results for the status endpoint
func (a *Application) Record(results ...*operations.Result) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range results {
		if r != nil {
			a.results = append(a.results, r)
		}
	}
}

// Results returns the recorded run results
func (a *Application) Results() []*operations.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]*operations.Result(nil), a.results...)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
