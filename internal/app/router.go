package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"loanprep/internal/config"
	"loanprep/internal/operations"
)

// HealthStatus is the /healthz response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// StatusResponse is the /status response
type StatusResponse struct {
	Version       string               `json:"version"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	Runs          []*operations.Result `json:"runs"`
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()
	logger := a.Logger.With(slog.String("component", "http"))
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	r.Get("/healthz", a.handleHealth)
	r.Get("/status", a.handleStatus)
	if a.OTel != nil && a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}
	a.Router = r
}

func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   config.AppVersion,
	})
}

func (a *Application) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs := a.Results()
	if runs == nil {
		runs = []*operations.Result{}
	}
	render.JSON(w, r, StatusResponse{
		Version:       config.AppVersion,
		UptimeSeconds: time.Since(a.startTime).Seconds(),
		Runs:          runs,
	})
}
