package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"iotinerary/pkg/logging"
)

const maxLogLines = 100

// Regex to capture key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line, or the last n lines
// with ?lines=n.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("lines")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]string{
			"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
		})
		return
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "lines must be a positive integer")
		return
	}
	if n > maxLogLines {
		n = maxLogLines
	}
	lines := logging.GlobalLogCapture.Tail(n)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = formatLogLine(l)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": out})
}

// handleEventLog returns the most recent user-facing notices as logged,
// 20 by default or ?lines=n.
func handleEventLog(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("lines"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "lines must be a positive integer")
			return
		}
		n = min(v, maxLogLines)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": nonNil(logging.Events.Tail(n))})
}

// formatLogLine parses the raw log line and applies filtering rules.
// Rules: Format time to HH:MM:SS, unwrap msg, sort other params, remove params > 20 chars.
// Output: HH:MM:SS MsgValue (key=value, key=value)
func formatLogLine(raw string) string {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg string
	var timeStr string
	var params []string

	for _, m := range matches {
		key := m[1]
		val := m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				timeStr = t.Format("15:04:05")
			}
			continue
		case "level", "component", "view":
			continue
		case "msg":
			msg = val
			continue
		}

		if len(val) > 20 {
			continue
		}
		params = append(params, fmt.Sprintf("%s=%s", key, val))
	}

	if msg == "" {
		return raw
	}

	sort.Strings(params) // deterministic output

	output := msg
	if timeStr != "" {
		output = fmt.Sprintf("%s %s", timeStr, msg)
	}

	if len(params) > 0 {
		return fmt.Sprintf("%s (%s)", output, strings.Join(params, ", "))
	}
	return output
}
