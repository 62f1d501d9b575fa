package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/metrics"
)

// rejectJSON ends a request that middleware refused with the mapped user
// message for err.
func rejectJSON(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	metrics.ErrorsTotal.WithLabelValues(msg.Code).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
