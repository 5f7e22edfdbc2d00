package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/program"
	"github.com/AaronLay10/SentientBlocks/internal/scheduler"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
	"github.com/AaronLay10/SentientBlocks/internal/storage/postgres"
)

const maxIntentBytes = 64 << 10

// EventQuerier reads persisted events, newest first.
type EventQuerier interface {
	Query(limit int) ([]postgres.EventRow, error)
}

// wired is what the handlers read and write. The store is only read here;
// every mutation goes through the queue so the frame goroutine applies it.
var wired struct {
	mu      sync.RWMutex
	store   *stage.Store
	queue   *stage.Queue
	stats   func() scheduler.Stats
	history EventQuerier
	width   float64
	height  float64
}

// SetStage wires the store snapshot and the intent queue into the API.
func SetStage(store *stage.Store, queue *stage.Queue) {
	wired.mu.Lock()
	defer wired.mu.Unlock()
	wired.store = store
	wired.queue = queue
}

// SetStageSize records the stage dimensions served to viewers.
func SetStageSize(width, height float64) {
	wired.mu.Lock()
	defer wired.mu.Unlock()
	wired.width = width
	wired.height = height
}

// SetStatsSource sets the function used to read scheduler counters.
func SetStatsSource(fn func() scheduler.Stats) {
	wired.mu.Lock()
	defer wired.mu.Unlock()
	wired.stats = fn
}

// SetEventQuerier enables /events/history. Pass nil to disable it.
func SetEventQuerier(q EventQuerier) {
	wired.mu.Lock()
	defer wired.mu.Unlock()
	wired.history = q
}

func currentStats() scheduler.Stats {
	wired.mu.RLock()
	fn := wired.stats
	wired.mu.RUnlock()
	if fn == nil {
		return scheduler.Stats{}
	}
	return fn()
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "stage",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	writeJSON(w, http.StatusOK, resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

// eventHistoryHandler serves persisted events. ?limit=N caps the result.
func eventHistoryHandler(w http.ResponseWriter, r *http.Request) {
	wired.mu.RLock()
	q := wired.history
	wired.mu.RUnlock()

	if q == nil {
		writeError(w, http.StatusServiceUnavailable, "event persistence not configured")
		return
	}

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := q.Query(limit)
	if err != nil {
		log.Printf("event history query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []postgres.EventRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type StageResponse struct {
	StageID  string          `json:"stage_id"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Running  bool            `json:"running"`
	Selected string          `json:"selected,omitempty"`
	Sprites  []stage.Sprite  `json:"sprites"`
	Stats    scheduler.Stats `json:"stats"`
}

func stageHandler(w http.ResponseWriter, r *http.Request) {
	wired.mu.RLock()
	store := wired.store
	width, height := wired.width, wired.height
	wired.mu.RUnlock()

	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "stage not loaded")
		return
	}

	writeJSON(w, http.StatusOK, StageResponse{
		StageID:  GetStageID(),
		Width:    width,
		Height:   height,
		Running:  store.Running(),
		Selected: store.Selected(),
		Sprites:  store.Snapshot(),
		Stats:    currentStats(),
	})
}

type blockDefinition struct {
	Type          program.BlockType `json:"type"`
	Category      string            `json:"category"`
	Label         string            `json:"label"`
	DefaultValues []interface{}     `json:"default_values"`
	Container     bool              `json:"container,omitempty"`
	Hat           bool              `json:"hat,omitempty"`
}

func blocksHandler(w http.ResponseWriter, r *http.Request) {
	defs := program.Definitions()
	out := make([]blockDefinition, 0, len(defs))
	for _, d := range defs {
		values := d.DefaultValues
		if values == nil {
			values = []interface{}{}
		}
		out = append(out, blockDefinition{
			Type:          d.Type,
			Category:      d.Category,
			Label:         d.Label,
			DefaultValues: values,
			Container:     d.Container,
			Hat:           d.Hat,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type IntentResponse struct {
	OK     bool   `json:"ok"`
	Queued string `json:"queued,omitempty"`
	Error  string `json:"error,omitempty"`
}

// enqueue hands an intent to the frame goroutine. Validation against the
// stage happens when the store applies it; rejections surface as
// stage.rejected events.
func enqueue(w http.ResponseWriter, in stage.Intent) {
	wired.mu.RLock()
	q := wired.queue
	wired.mu.RUnlock()

	if q == nil {
		writeJSON(w, http.StatusServiceUnavailable, IntentResponse{Error: "stage not loaded"})
		return
	}
	q.Push(in)
	writeJSON(w, http.StatusAccepted, IntentResponse{OK: true, Queued: string(in.Type())})
}

func intentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, IntentResponse{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIntentBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, IntentResponse{Error: "unreadable body"})
		return
	}

	in, err := stage.DecodeIntent(body)
	if err != nil {
		events.Emit("warning", "stage.rejected", err.Error(), map[string]interface{}{
			"source": "http",
		})
		writeJSON(w, http.StatusBadRequest, IntentResponse{Error: err.Error()})
		return
	}

	enqueue(w, in)
}

func runHandler(in stage.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, IntentResponse{Error: "method not allowed"})
			return
		}
		enqueue(w, in)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NewMux builds the HTTP routes. Mutating routes need the editor or admin
// role when credentials are configured.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/events/history", RequireAdmin(eventHistoryHandler))
	mux.HandleFunc("/stage", stageHandler)
	mux.HandleFunc("/blocks", blocksHandler)
	mux.HandleFunc("/intents", RequireAnyRole(intentsHandler))
	mux.HandleFunc("/run/start", RequireAnyRole(runHandler(stage.StartRun{})))
	mux.HandleFunc("/run/stop", RequireAnyRole(runHandler(stage.StopRun{})))
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/ui", uiHandler)
	return mux
}

// ListenAndServe starts the API server on the given port, over TLS when
// configured. It blocks until the server exits.
func ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if IsTLSEnabled() {
		tlsCfg := LoadTLSConfig()
		if tlsCfg == nil {
			return fmt.Errorf("tls configured but certificate could not be loaded")
		}
		srv.TLSConfig = tlsCfg
		log.Printf("API listening on %s (tls)\n", addr)
		return srv.ListenAndServeTLS("", "")
	}

	log.Printf("API listening on %s\n", addr)
	return srv.ListenAndServe()
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
