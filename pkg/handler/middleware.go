package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/common"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type scopeKey struct{}

// requestScope returns the scope RequestLogging attached to r, if any.
func requestScope(r *http.Request) *common.Scope {
	scope, _ := r.Context().Value(scopeKey{}).(*common.Scope)
	return scope
}

// tagPlayer adds the player to the request span and log fields.
func tagPlayer(r *http.Request, player string) {
	if scope := requestScope(r); scope != nil && player != "" {
		scope.SetPlayer(player)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogging traces every request in a span named after its route and
// logs method, route, status and duration with the trace id.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		scope := common.GetScopeFromContext(ctx, r.Method+" "+route)
		defer scope.Finish()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(scope.Ctx, scopeKey{}, scope)))

		scope.SetAttributes("http.status_code", rec.status)
		entry := scope.Log.WithField("method", r.Method).
			WithField("route", route).
			WithField("status", rec.status).
			WithField("duration", time.Since(start).String())
		switch {
		case rec.status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case rec.status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Debug("request served")
		}
	})
}

// BearerAuth rejects requests without "Authorization: Bearer <token>".
func BearerAuth(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid bearer token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
