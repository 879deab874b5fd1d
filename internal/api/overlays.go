package api

import (
	"encoding/json"
	"io"
	"net/http"

	"iotinerary/pkg/model"
	"iotinerary/pkg/overlay"
	"iotinerary/pkg/session"
)

// OverlayHandler serves the overlay toggles. Writes go through the view so
// the arbiter, the notice and the overlay re-evaluation happen together.
type OverlayHandler struct {
	ctrl  ViewController
	store *session.Manager
}

// NewOverlayHandler creates an OverlayHandler.
func NewOverlayHandler(ctrl ViewController, store *session.Manager) *OverlayHandler {
	return &OverlayHandler{ctrl: ctrl, store: store}
}

// OverlayRequest names the action to apply.
type OverlayRequest struct {
	Action string `json:"action"`
}

// OverlayResponse is the resulting state and its notice.
type OverlayResponse struct {
	Overlays model.OverlayToggles `json:"overlays"`
	Notice   *overlay.Notice      `json:"notice,omitempty"`
}

// HandleGet returns the current toggles.
func (h *OverlayHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OverlayResponse{Overlays: h.store.Overlays()})
}

// HandleApply runs one action.
func (h *OverlayHandler) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req OverlayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action, err := overlay.ParseAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	next, notice, err := h.ctrl.ApplyOverlay(r.Context(), action)
	if err != nil {
		writeViewError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OverlayResponse{Overlays: next, Notice: &notice})
}
