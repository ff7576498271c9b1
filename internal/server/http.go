// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AccelByte/extend-challenge-ledger/pkg/handler"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Routes mounts a group of endpoints on the router.
type Routes interface {
	Register(r *mux.Router)
}

// HTTPServer manages the game-facing HTTP API.
type HTTPServer struct {
	server  *http.Server
	router  *mux.Router
	port    int
	checker HealthCheck
	routes  []Routes
}

// NewHTTPServer creates a new HTTP server instance.
func NewHTTPServer(port int, checker HealthCheck, routes ...Routes) *HTTPServer {
	return &HTTPServer{
		port:    port,
		checker: checker,
		routes:  routes,
	}
}

// Setup builds the router and registers every route group.
func (h *HTTPServer) Setup() error {
	h.router = mux.NewRouter()
	h.router.Use(handler.RequestLogging)
	h.router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	for _, r := range h.routes {
		r.Register(h.router)
	}
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})

	h.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", h.port),
		Handler:           h.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Handler returns the configured router.
func (h *HTTPServer) Handler() http.Handler {
	return h.router
}

func (h *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.checker != nil {
		if err := h.checker.Check(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start begins serving HTTP requests.
func (h *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d", h.port)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := h.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}
