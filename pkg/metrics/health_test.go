package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestGetHealthReflectsWorstComponent(t *testing.T) {
	resetHealthChecker()
	SetVersion("1.2.3")
	RegisterComponent("controlplane", true, "")
	RegisterComponent("runtime", true, "")

	health := GetHealth()
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", health.Status)
	}
	if health.Version != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", health.Version)
	}

	UpdateComponent("runtime", false, "runc binary not found")
	health = GetHealth()
	if health.Status != "unhealthy" {
		t.Fatalf("expected unhealthy after UpdateComponent, got %q", health.Status)
	}
	if health.Components["runtime"] != "unhealthy: runc binary not found" {
		t.Fatalf("unexpected runtime component message: %q", health.Components["runtime"])
	}
}

func TestGetReadinessWaitsOnCriticalComponents(t *testing.T) {
	resetHealthChecker()

	readiness := GetReadiness()
	if readiness.Status != "not_ready" {
		t.Fatalf("expected not_ready with no components registered, got %q", readiness.Status)
	}

	RegisterComponent("controlplane", true, "")
	RegisterComponent("registry", true, "")
	RegisterComponent("runtime", true, "")
	readiness = GetReadiness()
	if readiness.Status != "ready" {
		t.Fatalf("expected ready once runtime/registry/controlplane are all healthy, got %q", readiness.Status)
	}

	UpdateComponent("registry", false, "dial timeout")
	readiness = GetReadiness()
	if readiness.Status != "not_ready" {
		t.Fatalf("expected not_ready once a critical component turns unhealthy, got %q", readiness.Status)
	}
	if readiness.Message == "" {
		t.Fatal("expected a message naming the not-ready component")
	}
}

func TestHealthHandlerStatusCode(t *testing.T) {
	cases := []struct {
		name    string
		healthy bool
		want    int
	}{
		{"healthy", true, http.StatusOK},
		{"unhealthy", false, http.StatusServiceUnavailable},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resetHealthChecker()
			RegisterComponent("controlplane", c.healthy, "")

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			HealthHandler()(w, req)

			if w.Code != c.want {
				t.Fatalf("expected status %d, got %d", c.want, w.Code)
			}

			var body HealthStatus
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
		})
	}
}

func TestReadyHandlerStatusCode(t *testing.T) {
	resetHealthChecker()
	RegisterComponent("controlplane", true, "")
	// runtime and registry left unregistered.

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	ReadyHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while waiting on registration, got %d", w.Code)
	}

	RegisterComponent("runtime", true, "")
	RegisterComponent("registry", true, "")

	w = httptest.NewRecorder()
	ReadyHandler()(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 once all critical components are ready, got %d", w.Code)
	}
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	resetHealthChecker()

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	LivenessHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "alive" {
		t.Fatalf("expected status alive, got %q", body["status"])
	}
	if body["uptime"] == "" {
		t.Fatal("expected a non-empty uptime")
	}
}
