package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery converts a panicking handler into a 500 instead of taking the
// server down, matching the per-portfolio/per-agent recover() guards
// elsewhere in the pipeline.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("http handler panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("stack", string(debug.Stack())),
					)
					http.Error(w, fmt.Sprintf("internal server error: %v", rec), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
