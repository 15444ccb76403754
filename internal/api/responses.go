package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/cert-registry/internal/pkg/logger"
)

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondSafeError logs the internal error correlated by request ID and
// sends an opaque JSON error to the client. Internal detail (store
// errors, AWS responses, file paths) is never written to the response
// body.
func respondSafeError(w http.ResponseWriter, r *http.Request, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"status", code,
			"public_msg", publicMsg,
			"error", internalErr)
	}
	respondJSON(w, code, map[string]string{"message": publicMsg})
}
