package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	stageID   string
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetStageID sets the stage id used in metric labels and alerts.
func SetStageID(id string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.stageID = id
}

// GetStageID returns the current stage id.
func GetStageID() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.stageID
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	stageID := metricsState.stageID
	metricsState.mu.RUnlock()

	readiness.mu.RLock()
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	wired.mu.RLock()
	store := wired.store
	wired.mu.RUnlock()

	running, sprites := false, 0
	if store != nil {
		running = store.Running()
		sprites = len(store.Snapshot())
	}
	stats := currentStats()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`stage="%s",instance="%s",version="%s"`, stageID, hostname, version.Version)

	writeMetric("sentient_uptime_seconds", "gauge",
		"Number of seconds since the stage service started", time.Since(startTime).Seconds(), labels)
	writeMetric("sentient_run_active", "gauge",
		"Whether the stage is running (1) or not (0)", boolGauge(running), labels)
	writeMetric("sentient_sprites", "gauge",
		"Number of sprites on the stage", sprites, labels)
	writeMetric("sentient_ticks_total", "counter",
		"Frames executed since startup", stats.Ticks, labels)
	writeMetric("sentient_collisions_total", "counter",
		"Collisions detected since startup", stats.Collisions, labels)
	writeMetric("sentient_completions_total", "counter",
		"Sprites that finished their script since startup", stats.Completions, labels)
	writeMetric("sentient_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)
	writeMetric("sentient_events_dropped_total", "counter",
		"Event deliveries skipped for slow subscribers", events.DroppedCount(), labels)
	writeMetric("sentient_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", boolGauge(mqttConnected), labels)
	writeMetric("sentient_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(postgresConnected), labels)
	writeMetric("sentient_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
}
