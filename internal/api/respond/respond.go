package respond

import (
	"encoding/json"
	"net/http"

	"diabetes-risk/pkg/logger"
)

// ErrorBody is the only error shape clients ever see
type ErrorBody struct {
	Error string `json:"error"`
}

// fallback is sent when v cannot be encoded; the status is not yet written
var fallback = []byte(`{"error":"Internal server error"}` + "\n")

// JSON writes v with the given status. Values that fail to encode, such as
// NaN floats, turn into a 500 instead of an empty 200.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		logger.Get().Errorw("Failed to encode response", "status", status, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(fallback)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// Error writes {"error": message} with the given status
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}
