// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AccelByte/extend-challenge-ledger/pkg/metrics"
	"github.com/gorilla/mux"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) Check(ctx context.Context) error {
	return s.err
}

type pingRoutes struct{}

func (pingRoutes) Register(r *mux.Router) {
	r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHTTPServer_Routes(t *testing.T) {
	checker := &stubChecker{}
	srv := NewHTTPServer(8000, checker, pingRoutes{})
	if err := srv.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if rec := serve(srv.Handler(), http.MethodGet, "/ping"); rec.Code != http.StatusNoContent {
		t.Errorf("/ping status = %d, want 204", rec.Code)
	}

	rec := serve(srv.Handler(), http.MethodGet, "/missing")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "not found") {
		t.Errorf("/missing = %d %q, want 404 json", rec.Code, rec.Body.String())
	}
}

func TestHTTPServer_Healthz(t *testing.T) {
	checker := &stubChecker{}
	srv := NewHTTPServer(8000, checker)
	if err := srv.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if rec := serve(srv.Handler(), http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	checker.err = errors.New("redis down")
	rec := serve(srv.Handler(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}

func TestGRPCServer_HealthFollowsChecker(t *testing.T) {
	checker := &stubChecker{}
	srv := NewGRPCServer(6565, checker)
	if err := srv.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	ctx := context.Background()

	srv.updateHealth(ctx)
	resp, err := srv.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("status = %s, want SERVING", resp.Status)
	}

	checker.err = errors.New("redis down")
	srv.updateHealth(ctx)
	resp, err = srv.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %s, want NOT_SERVING", resp.Status)
	}
}

func TestMetricsServer_ExposesLedgerMetrics(t *testing.T) {
	srv := NewMetricsServer(8080, "/metrics")
	if err := srv.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	metrics.ObserveOperation("redeem", metrics.ResultOK)

	rec := serve(srv.Handler(), http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "challenge_ledger_operations_total") {
		t.Error("expected ledger operation counter in metrics output")
	}
}
