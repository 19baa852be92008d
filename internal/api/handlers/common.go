// Package handlers implements the read-mostly HTTP surface (C9), using the response-shape and error-envelope conventions of
// internal/api/handlers/stats_handler.go.
package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"hldesk/internal/apperr"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonAPI.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForErr maps an apperr.Kind to an HTTP status for the cases a
// handler hasn't already special-cased (missing param → 400, unknown
// resource → 404): validation errors are 400, everything else reported
// through this path is a store misconfiguration and is 500.
func statusForErr(err error) int {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if kind == apperr.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
