package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	StageID   string                 `json:"stage_id"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// connectionWatch raises one alert when a dependency stays down past delay
// and one recovery alert when it comes back.
type connectionWatch struct {
	event    string
	severity string
	label    string
	delay    time.Duration

	downSince time.Time
	alerted   bool
	lastUp    bool
}

// observe records the current state and returns the alert to send, if any.
func (c *connectionWatch) observe(connected bool, now time.Time) *AlertPayload {
	if connected {
		var recovery *AlertPayload
		if !c.lastUp && c.alerted {
			recovery = &AlertPayload{
				Event:    c.event,
				Severity: SeverityInfo,
				Message:  c.label + " connection restored",
				Details:  map[string]interface{}{"recovered_at": now.UTC().Format(time.RFC3339)},
			}
		}
		c.downSince = time.Time{}
		c.alerted = false
		c.lastUp = true
		return recovery
	}

	if c.lastUp {
		c.downSince = now
	}
	c.lastUp = false

	if c.alerted || c.downSince.IsZero() {
		return nil
	}
	down := now.Sub(c.downSince)
	if down < c.delay {
		return nil
	}
	c.alerted = true
	return &AlertPayload{
		Event:    c.event,
		Severity: c.severity,
		Message:  c.label + " unavailable",
		Details: map[string]interface{}{
			"disconnected_since":   c.downSince.UTC().Format(time.RFC3339),
			"disconnected_seconds": int(down.Seconds()),
		},
	}
}

var (
	alertMu         sync.Mutex
	alertWebhookURL string
	alertsReady     bool
	mqttWatch       = &connectionWatch{event: AlertMQTTDisconnected, severity: SeverityWarning, label: "MQTT broker", delay: 30 * time.Second}
	postgresWatch   = &connectionWatch{event: AlertPostgresUnavailable, severity: SeverityCritical, label: "PostgreSQL", delay: 5 * time.Second}
)

// InitAlerts loads SENTIENT_ALERT_WEBHOOK_URL and the optional
// SENTIENT_MQTT_ALERT_DELAY / SENTIENT_POSTGRES_ALERT_DELAY durations.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertWebhookURL = os.Getenv("SENTIENT_ALERT_WEBHOOK_URL")
	if d, err := time.ParseDuration(os.Getenv("SENTIENT_MQTT_ALERT_DELAY")); err == nil {
		mqttWatch.delay = d
	}
	if d, err := time.ParseDuration(os.Getenv("SENTIENT_POSTGRES_ALERT_DELAY")); err == nil {
		postgresWatch.delay = d
	}

	if alertWebhookURL != "" {
		log.Printf("Alerts enabled: webhook URL configured (mqtt_delay=%s, pg_delay=%s)",
			mqttWatch.delay, postgresWatch.delay)
	}

	// Assume connected at start
	for _, w := range []*connectionWatch{mqttWatch, postgresWatch} {
		w.lastUp = true
		w.alerted = false
		w.downSince = time.Time{}
	}
	alertsReady = true
}

// GetAlertWebhookURL returns the configured webhook URL.
func GetAlertWebhookURL() string {
	alertMu.Lock()
	defer alertMu.Unlock()
	return alertWebhookURL
}

// SendAlert posts an alert to the webhook in the background, or logs it
// when no webhook is configured.
func SendAlert(p AlertPayload) {
	alertMu.Lock()
	url := alertWebhookURL
	alertMu.Unlock()

	if url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", p.Event, p.Severity, p.Message, p.Details)
		return
	}

	p.StageID = GetStageID()
	if p.StageID == "" {
		p.StageID = "unknown"
	}
	p.Timestamp = time.Now().UTC().Format(time.RFC3339)

	go sendWebhook(url, p)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

func check(w *connectionWatch, connected bool) {
	alertMu.Lock()
	if !alertsReady {
		alertMu.Unlock()
		return
	}
	alert := w.observe(connected, time.Now())
	alertMu.Unlock()

	if alert != nil {
		SendAlert(*alert)
	}
}

// CheckAndAlertMQTT feeds the broker state into the alert tracker.
func CheckAndAlertMQTT(connected bool) { check(mqttWatch, connected) }

// CheckAndAlertPostgres feeds the database state into the alert tracker.
func CheckAndAlertPostgres(connected bool) { check(postgresWatch, connected) }

// StartAlertMonitor samples readiness state every checkInterval until ctx
// is done. Optional dependencies are not watched.
func StartAlertMonitor(ctx context.Context, checkInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			readiness.mu.RLock()
			mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
			pgConnected, pgOptional := readiness.postgresConnected, readiness.postgresOptional
			readiness.mu.RUnlock()

			if !mqttOptional {
				CheckAndAlertMQTT(mqttConnected)
			}
			if !pgOptional {
				CheckAndAlertPostgres(pgConnected)
			}
		}
	}()
}
