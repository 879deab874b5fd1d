package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotinerary/pkg/apisession"
	"iotinerary/pkg/geo"
	"iotinerary/pkg/mapview"
	"iotinerary/pkg/model"
	"iotinerary/pkg/models"
	"iotinerary/pkg/notify"
	"iotinerary/pkg/overlay"
	"iotinerary/pkg/session"
)

var camera = model.CameraTarget{
	Name:     "Binurong Point",
	Pose:     model.Pose{Center: model.LngLat{Lng: 124.325374, Lat: 13.559598}, Zoom: 19.28, Pitch: 60},
	Duration: 2 * time.Second,
}

// fakeController mimics the view on top of the real store.
type fakeController struct {
	store   *session.Manager
	notices *notify.Center
	ready   bool
	clicks  int
	resizes int
}

func (f *fakeController) Status(context.Context) (mapview.Status, error) {
	st := mapview.Status{ID: "view-1", Lifecycle: model.StatusInitializing}
	if f.ready {
		st.Lifecycle = model.StatusLoaded
	}
	return st, nil
}

func (f *fakeController) ApplyOverlay(_ context.Context, a overlay.Action) (model.OverlayToggles, overlay.Notice, error) {
	next, n := f.store.DispatchOverlay(a)
	f.notices.Post(n.Level, n.Message)
	return next, n, nil
}

func (f *fakeController) ClickMarker(context.Context) error {
	if !f.ready {
		return mapview.ErrNotReady
	}
	f.clicks++
	f.store.OpenSpotPanel("binurong-point")
	return nil
}

func (f *fakeController) Resize(context.Context) error {
	if !f.ready {
		return mapview.ErrNotReady
	}
	f.resizes++
	return nil
}

func (f *fakeController) Camera() model.CameraTarget { return camera }

type fixture struct {
	srv      *httptest.Server
	ctrl     *fakeController
	store    *session.Manager
	notices  *notify.Center
	stream   *StreamHandler
	shutdown chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := session.NewManager(model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true})
	notices := notify.NewCenter(20)
	ctrl := &fakeController{store: store, notices: notices, ready: true}
	layer := models.NewLayer([]models.Spot{
		{ID: "binurong-point", Name: "Binurong Point", Position: model.LngLat{Lng: 124.325192, Lat: 13.559582}, ModelURL: "/models/binurong.glb"},
		{ID: "bato-church", Name: "Bato Church", Position: model.LngLat{Lng: 124.2986, Lat: 13.6046}},
	})
	stream := NewStreamHandler(store, notices)
	shutdown := make(chan struct{}, 1)

	srv := NewServer("",
		NewMapHandler(ctrl, store, layer, geo.DefaultRegion()),
		NewOverlayHandler(ctrl, store),
		NewNoticeHandler(notices, apisession.New(time.Minute)),
		stream,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
		func() { shutdown <- struct{}{} },
	)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		stream.Close()
		ts.Close()
	})
	return &fixture{srv: ts, ctrl: ctrl, store: store, notices: notices, stream: stream, shutdown: shutdown}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_HealthAndVersion(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/version", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode[map[string]string](t, resp)["version"])

	resp = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = f.do(t, http.MethodGet, "/api/engine", nil)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestServer_MapStatusAndViewport(t *testing.T) {
	f := newFixture(t)
	f.store.SetStatus(model.StatusLoaded, "")
	settled := model.Pose{Center: model.LngLat{Lng: 124.24, Lat: 13.75}, Zoom: 11}
	f.store.SetViewport(settled)

	resp := f.do(t, http.MethodGet, "/api/map/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[MapStatusResponse](t, resp)
	assert.Equal(t, model.StatusLoaded, st.Status)
	assert.Equal(t, model.StatusLoaded, st.View.Lifecycle)
	assert.Equal(t, camera.Name, st.Camera.Name)

	resp = f.do(t, http.MethodGet, "/api/map/viewport", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vp := decode[ViewportResponse](t, resp)
	assert.Equal(t, settled, vp.Viewport)
}

func TestServer_MarkerClickAndResize(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		wantClick  int
		wantResize int
	}{
		{name: "ready", ready: true, wantClick: http.StatusAccepted, wantResize: http.StatusNoContent},
		{name: "not initialized", ready: false, wantClick: http.StatusConflict, wantResize: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ctrl.ready = tt.ready

			resp := f.do(t, http.MethodPost, "/api/map/marker/click", nil)
			assert.Equal(t, tt.wantClick, resp.StatusCode)
			resp = f.do(t, http.MethodPost, "/api/map/resize", nil)
			assert.Equal(t, tt.wantResize, resp.StatusCode)
		})
	}
}

func TestServer_SpotPanel(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/map/spot-panel", nil)
	assert.False(t, decode[SpotPanelResponse](t, resp).Open)

	f.do(t, http.MethodPost, "/api/map/marker/click", nil)
	resp = f.do(t, http.MethodGet, "/api/map/spot-panel", nil)
	panel := decode[SpotPanelResponse](t, resp)
	assert.True(t, panel.Open)
	require.NotNil(t, panel.Spot)
	assert.Equal(t, "Binurong Point", panel.Spot.Name)
	assert.Equal(t, "13.55958, 124.32519", panel.Coordinates)
	assert.Equal(t, "20m", panel.FromCamera)

	resp = f.do(t, http.MethodDelete, "/api/map/spot-panel", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, f.store.Snapshot().SpotPanelOpen)
}

func TestServer_Overlays(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/overlays", nil)
	got := decode[OverlayResponse](t, resp)
	assert.Equal(t, model.OverlayToggles{PerformanceMode: true, TerrainEnabled: true}, got.Overlays)

	resp = f.do(t, http.MethodPost, "/api/overlays", OverlayRequest{Action: "toggle-models"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[OverlayResponse](t, resp)
	assert.Equal(t, model.OverlayToggles{PerformanceMode: true, ModelsEnabled: true}, got.Overlays)
	require.NotNil(t, got.Notice)
	assert.Equal(t, overlay.MsgModelsOnForced, got.Notice.Message)
	assert.True(t, got.Notice.Forced)

	resp = f.do(t, http.MethodPost, "/api/overlays", OverlayRequest{Action: "fly"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/overlays", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_GeoJSON(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/map/spots", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	var spots geojson.FeatureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spots))
	assert.Len(t, spots.Features, 2)

	resp = f.do(t, http.MethodGet, "/api/map/region", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var region geojson.FeatureCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&region))
	require.Len(t, region.Features, 1)
	assert.Equal(t, "Catanduanes", region.Features[0].Properties["name"])
}

func TestServer_NotificationsCursor(t *testing.T) {
	f := newFixture(t)
	f.notices.Info("first")
	f.notices.Success("second")

	resp := f.do(t, http.MethodGet, "/api/notifications?client=tab-1", nil)
	assert.Len(t, decode[NoticesResponse](t, resp).Notices, 2)

	resp = f.do(t, http.MethodGet, "/api/notifications?client=tab-1", nil)
	assert.Empty(t, decode[NoticesResponse](t, resp).Notices)

	f.notices.Error("Failed to load map")
	resp = f.do(t, http.MethodGet, "/api/notifications?client=tab-1", nil)
	notices := decode[NoticesResponse](t, resp).Notices
	require.Len(t, notices, 1)
	assert.Equal(t, model.NoticeError, notices[0].Level)

	resp = f.do(t, http.MethodGet, "/api/notifications", nil)
	assert.Len(t, decode[NoticesResponse](t, resp).Notices, 3)
}

func TestServer_Stream(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() StreamMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	assert.Equal(t, "state", initial.Type)
	require.NotNil(t, initial.State)

	require.Eventually(t, func() bool { return f.stream.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	f.store.SetStatus(model.StatusErrored, "Map error: boom")
	f.notices.Error("Failed to load map")

	state := read()
	assert.Equal(t, session.ChangeStatus, state.Kind)
	assert.Equal(t, model.StatusErrored, state.State.Status)

	notice := read()
	assert.Equal(t, "notice", notice.Type)
	assert.Equal(t, "Failed to load map", notice.Notice.Message)
}

func TestServer_Shutdown(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/shutdown", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	select {
	case <-f.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown not called")
	}
}
