package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// readinessState tracks the dependencies reported on /ready.
type readinessState struct {
	mu                sync.RWMutex
	runtimeReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

var readiness = &readinessState{}

// CheckStatus is one dependency entry of the readiness response.
type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

// SetRuntimeReady marks the frame loop as running.
func SetRuntimeReady(ready bool) {
	readiness.mu.Lock()
	readiness.runtimeReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records the broker connection. An optional broker that is
// down does not fail readiness.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records the event store connection.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

func dependencyCheck(connected, optional bool) CheckStatus {
	switch {
	case connected:
		return CheckStatus{Status: "ok", Optional: optional}
	case optional:
		return CheckStatus{Status: "unavailable", Optional: true}
	default:
		return CheckStatus{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	runtime := readiness.runtimeReady
	mqtt := dependencyCheck(readiness.mqttConnected, readiness.mqttOptional)
	pg := dependencyCheck(readiness.postgresConnected, readiness.postgresOptional)
	readiness.mu.RUnlock()

	resp := ReadinessResponse{
		Ready:  true,
		Checks: map[string]CheckStatus{"mqtt": mqtt, "postgres": pg},
	}

	var reasons []string
	if runtime {
		resp.Checks["runtime"] = CheckStatus{Status: "ok"}
	} else {
		resp.Checks["runtime"] = CheckStatus{Status: "not_ready"}
		reasons = append(reasons, "frame loop not running")
	}
	if mqtt.Status == "not_ready" {
		reasons = append(reasons, "mqtt not connected")
	}
	if pg.Status == "not_ready" {
		reasons = append(reasons, "postgres not connected")
	}

	w.Header().Set("Content-Type", "application/json")
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
