// Package app wires the shared runtime of the command-line tools.
//
// New builds, from one loaded configuration, the logger, the OpenTelemetry
// providers, the pipeline metrics and a Runner configured with them. When
// telemetry.metrics_addr is set, Start serves a small chi router while the
// tool runs:
//
//	/metrics   Prometheus scrape endpoint
//	/healthz   liveness
//	/status    results of the runs finished so far
//
// Stop shuts the server down, flushes telemetry and closes the log file.
//
//	application, err := app.New(cfg)
//	if err != nil {
//		return err
//	}
//	ctx, stop := app.SignalContext(context.Background())
//	defer stop()
//	if err := application.Start(ctx); err != nil {
//		return err
//	}
//	defer application.Stop(context.Background())
package app
