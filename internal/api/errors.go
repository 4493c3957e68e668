package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Wire error codes. Context fields accompany some codes: cooldown carries
// remainingSeconds, out-of-bounds carries cols/rows, daily-limit-reached
// carries used/allowed.
const (
	codeMethod          = "method"
	codeUnauthenticated = "unauthenticated"
	codeInvalidPayload  = "invalid-payload"
	codeInvalidColor    = "invalid-color"
	codeOutOfBounds     = "out-of-bounds"
	codeCooldown        = "cooldown"
	codeDailyLimit      = "daily-limit-reached"
	codeInternal        = "internal-server-error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

// errorBody builds the {ok:false, error:code} envelope plus context fields.
func errorBody(code string, extra map[string]any) map[string]any {
	body := map[string]any{"ok": false, "error": code}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func writeError(w http.ResponseWriter, status int, code string, extra map[string]any) {
	writeJSON(w, status, errorBody(code, extra))
}
