package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"iotinerary/internal/ui"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/model"
	"iotinerary/pkg/overlay"
	"iotinerary/pkg/version"
)

// ViewController runs view commands on the view's event loop.
type ViewController interface {
	Status(ctx context.Context) (mapview.Status, error)
	ApplyOverlay(ctx context.Context, a overlay.Action) (model.OverlayToggles, overlay.Notice, error)
	ClickMarker(ctx context.Context) error
	Resize(ctx context.Context) error
	Camera() model.CameraTarget
}

// NewServer creates and configures the HTTP server.
// engineH hosts the browser engine bridge and may be nil for the headless engine.
func NewServer(addr string, mapH *MapHandler, overlays *OverlayHandler, notices *NoticeHandler, stream *StreamHandler, engineH http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Map Endpoints
	mux.HandleFunc("GET /api/map/status", mapH.HandleStatus)
	mux.HandleFunc("GET /api/map/viewport", mapH.HandleViewport)
	mux.HandleFunc("POST /api/map/marker/click", mapH.HandleMarkerClick)
	mux.HandleFunc("POST /api/map/resize", mapH.HandleResize)
	mux.HandleFunc("GET /api/map/spots", mapH.HandleSpots)
	mux.HandleFunc("GET /api/map/region", mapH.HandleRegion)
	mux.HandleFunc("GET /api/map/spot-panel", mapH.HandleSpotPanel)
	mux.HandleFunc("DELETE /api/map/spot-panel", mapH.HandleCloseSpotPanel)

	// 4. Overlay Endpoints
	mux.HandleFunc("GET /api/overlays", overlays.HandleGet)
	mux.HandleFunc("POST /api/overlays", overlays.HandleApply)

	// 5. Notifications, Logs, Stream
	mux.HandleFunc("GET /api/notifications", notices.Handle)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	mux.HandleFunc("GET /api/log/events", handleEventLog)
	mux.Handle("GET /api/stream", stream)

	// 6. Browser Engine
	if engineH != nil {
		mux.Handle("GET /api/engine", engineH)
	}

	// 7. Shutdown Endpoint
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

	// 8. Map page
	distFS, err := fs.Sub(ui.DistFS, "dist")
	if err != nil {
		panic(fmt.Sprintf("Failed to subtree dist from embedded assets: %v", err))
	}
	spaFS := &spaFileSystem{root: http.FS(distFS)}
	mux.Handle("/", http.FileServer(spaFS))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeViewError maps view and loop errors to HTTP statuses.
func writeViewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapview.ErrNotReady):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, mapview.ErrLoopStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
