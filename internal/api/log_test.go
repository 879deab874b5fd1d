package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotinerary/pkg/logging"
	"iotinerary/pkg/model"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "params sorted and long values dropped",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Map loaded" component=mapview view=1a2b3c4d source=terrainSource zoom=10 style=https://api.maptiler.com/maps/satellite/style.json`,
			want:  "06:50:46 Map loaded (source=terrainSource, zoom=10)",
		},
		{
			name:  "no params",
			input: `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Map torn down"`,
			want:  "06:50:46 Map torn down",
		},
		{
			name:  "not a slog line",
			input: "plain text",
			want:  "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLogLine(tt.input))
		})
	}
}

func TestHandleLatestLog(t *testing.T) {
	_, _ = logging.GlobalLogCapture.Write([]byte("time=2026-01-18T06:50:46Z level=INFO msg=first\ntime=2026-01-18T06:50:47Z level=INFO msg=second\n"))

	w := httptest.NewRecorder()
	handleLatestLog(w, httptest.NewRequest(http.MethodGet, "/api/log/latest", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var latest map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&latest))
	assert.Equal(t, "06:50:47 second", latest["log"])

	w = httptest.NewRecorder()
	handleLatestLog(w, httptest.NewRequest(http.MethodGet, "/api/log/latest?lines=2", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var tail map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tail))
	assert.Equal(t, []string{"06:50:46 first", "06:50:47 second"}, tail["lines"])

	w = httptest.NewRecorder()
	handleLatestLog(w, httptest.NewRequest(http.MethodGet, "/api/log/latest?lines=x", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEventLog(t *testing.T) {
	logging.Events.SetPath(filepath.Join(t.TempDir(), "events.log"))
	t.Cleanup(func() { logging.Events.SetPath("") })
	logging.LogEvent(&model.Notice{ID: "n-7", Level: model.NoticeError, Message: "Failed to load map"})

	w := httptest.NewRecorder()
	handleEventLog(w, httptest.NewRequest(http.MethodGet, "/api/log/events?lines=1", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	var tail map[string][]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tail))
	require.Len(t, tail["lines"], 1)
	assert.Contains(t, tail["lines"][0], "[error] Failed to load map (n-7)")

	w = httptest.NewRecorder()
	handleEventLog(w, httptest.NewRequest(http.MethodGet, "/api/log/events?lines=0", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
