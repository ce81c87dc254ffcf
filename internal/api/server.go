package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"cabinmix/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, tel *TelemetryHandler, mixerH *MixerHandler, vehiclesH *VehicleHandler, streamH *StreamHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Telemetry, Version, Logs
	mux.HandleFunc("GET /api/telemetry", tel.handleTelemetry)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleLatestEvent)

	// 3. Mixer Endpoints
	mux.HandleFunc("GET /api/mixer", mixerH.HandleState)
	mux.HandleFunc("PUT /api/mixer/master", mixerH.HandleMaster)
	mux.HandleFunc("PUT /api/mixer/zones/{zone}", mixerH.HandleZone)
	mux.HandleFunc("PUT /api/mixer/fade", mixerH.HandleFade)
	mux.HandleFunc("PUT /api/mixer/effects/{effect}", mixerH.HandleEffect)
	mux.HandleFunc("POST /api/mixer/force-update", mixerH.HandleForceUpdate)
	mux.HandleFunc("POST /api/mixer/wake", mixerH.HandleWake)
	mux.HandleFunc("POST /api/mixer/reset", mixerH.HandleReset)
	mux.HandleFunc("POST /api/mixer/test-tone", mixerH.HandleTestTone)
	mux.HandleFunc("POST /api/mixer/position", mixerH.HandlePosition)
	mux.HandleFunc("GET /api/mixer/spectrum", mixerH.HandleSpectrum)
	if streamH != nil {
		mux.HandleFunc("GET /api/mixer/stream", streamH.HandleStream)
	}

	// 4. Vehicle Endpoints
	mux.HandleFunc("GET /api/vehicles", vehiclesH.HandleList)
	mux.HandleFunc("GET /api/vehicles/{id}", vehiclesH.HandleGet)
	mux.HandleFunc("PUT /api/vehicles/{id}", vehiclesH.HandlePut)

	// 5. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ListenAndServe binds srv.Addr and serves with at most maxConns concurrent
// connections. maxConns <= 0 means unlimited.
func ListenAndServe(srv *http.Server, maxConns int) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	slog.Info("Listening", "addr", ln.Addr().String(), "max_connections", maxConns)
	return srv.Serve(ln)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
