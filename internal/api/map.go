package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"iotinerary/pkg/geo"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/model"
	"iotinerary/pkg/models"
	"iotinerary/pkg/session"
)

// MapHandler serves the map lifecycle, viewport and catalogue endpoints.
type MapHandler struct {
	ctrl   ViewController
	store  *session.Manager
	layer  *models.Layer
	region *geo.Region
}

// NewMapHandler creates a MapHandler.
func NewMapHandler(ctrl ViewController, store *session.Manager, layer *models.Layer, region *geo.Region) *MapHandler {
	return &MapHandler{ctrl: ctrl, store: store, layer: layer, region: region}
}

// MapStatusResponse combines the view snapshot with the published state.
type MapStatusResponse struct {
	View       mapview.Status                      `json:"view"`
	Status     model.LifecycleStatus               `json:"status"`
	Error      string                              `json:"error,omitempty"`
	Subsystems map[session.Subsystem]session.Flags `json:"subsystems"`
	Camera     model.CameraTarget                  `json:"camera"`
}

// ViewportResponse holds the settled and the live pose.
type ViewportResponse struct {
	Viewport model.Pose `json:"viewport"`
	LivePose model.Pose `json:"livePose"`
}

// SpotPanelResponse is the sidebar state. Coordinates and FromCamera are
// display strings for the open spot.
type SpotPanelResponse struct {
	Open        bool         `json:"open"`
	Spot        *models.Spot `json:"spot,omitempty"`
	Coordinates string       `json:"coordinates,omitempty"`
	FromCamera  string       `json:"fromCamera,omitempty"`
}

// HandleStatus returns the lifecycle status.
func (h *MapHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.ctrl.Status(r.Context())
	if err != nil {
		writeViewError(w, err)
		return
	}
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, MapStatusResponse{
		View:       view,
		Status:     snap.Status,
		Error:      snap.Error,
		Subsystems: snap.Subsystems,
		Camera:     h.ctrl.Camera(),
	})
}

// HandleViewport returns the last published poses.
func (h *MapHandler) HandleViewport(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, ViewportResponse{Viewport: snap.Viewport, LivePose: snap.LivePose})
}

// HandleMarkerClick behaves like a click on the map marker.
func (h *MapHandler) HandleMarkerClick(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ClickMarker(r.Context()); err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Camera())
}

// HandleResize forwards a container resize to the canvas.
func (h *MapHandler) HandleResize(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Resize(r.Context()); err != nil {
		writeViewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSpots returns the tourist spots as GeoJSON.
func (h *MapHandler) HandleSpots(w http.ResponseWriter, r *http.Request) {
	writeGeoJSON(w, h.layer.FeatureCollection())
}

// HandleRegion returns the region of interest as GeoJSON.
func (h *MapHandler) HandleRegion(w http.ResponseWriter, r *http.Request) {
	writeGeoJSON(w, h.region.FeatureCollection())
}

// HandleSpotPanel returns the sidebar state.
func (h *MapHandler) HandleSpotPanel(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	resp := SpotPanelResponse{Open: snap.SpotPanelOpen}
	if snap.SpotPanelOpen {
		if spot, ok := h.layer.Spot(snap.SelectedSpot); ok {
			at := geo.Point{Lat: spot.Position.Lat, Lon: spot.Position.Lng}
			cam := h.ctrl.Camera().Pose.Center
			resp.Spot = &spot
			resp.Coordinates = geo.FormatCoordinate(at, 5)
			resp.FromCamera = geo.FormatDistance(geo.Distance(geo.Point{Lat: cam.Lat, Lon: cam.Lng}, at))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCloseSpotPanel closes the sidebar.
func (h *MapHandler) HandleCloseSpotPanel(w http.ResponseWriter, r *http.Request) {
	h.store.CloseSpotPanel()
	w.WriteHeader(http.StatusNoContent)
}

func writeGeoJSON(w http.ResponseWriter, v json.Marshaler) {
	data, err := v.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write geojson response", "error", err)
	}
}
