package api

import (
	"net/http"

	"iotinerary/pkg/apisession"
	"iotinerary/pkg/model"
	"iotinerary/pkg/notify"
)

// NoticeHandler serves notification history. A client that sends its id
// only receives notices it has not seen yet.
type NoticeHandler struct {
	center  *notify.Center
	cursors *apisession.Cursors
}

// NewNoticeHandler creates a NoticeHandler.
func NewNoticeHandler(center *notify.Center, cursors *apisession.Cursors) *NoticeHandler {
	return &NoticeHandler{center: center, cursors: cursors}
}

// NoticesResponse lists notices oldest first.
type NoticesResponse struct {
	Notices []model.Notice `json:"notices"`
}

// Handle returns the full history, or the unseen tail for ?client=<id>.
func (h *NoticeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get("client")
	if client == "" {
		writeJSON(w, http.StatusOK, NoticesResponse{Notices: nonNil(h.center.History())})
		return
	}

	prev, _ := h.cursors.Peek(client)
	notices := h.center.Since(prev)
	last := ""
	if len(notices) > 0 {
		last = notices[len(notices)-1].ID
	}
	h.cursors.Swap(client, last)
	writeJSON(w, http.StatusOK, NoticesResponse{Notices: nonNil(notices)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
