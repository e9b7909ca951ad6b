package middleware

import (
	"log/slog"
	"net/http"
)

// NewRequestLogger logs each upgrade attempt before it reaches the limiter
// and auth layers, so rejected attempts still leave a trace.
func NewRequestLogger(logger *slog.Logger) Middleware {
	log := logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ip string
			if reqMeta, ok := ReqMetadataFrom(r.Context()); ok {
				ip = reqMeta.IP
			}

			log.Info("Upgrade request received",
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.String("ip", ip),
			)
			next.ServeHTTP(w, r)
		})
	}
}
