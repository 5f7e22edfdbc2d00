package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SentientBlocks/internal/events"
)

const (
	// Default number of recent events replayed on connect
	defaultBacklog = 50

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventFilter keeps events whose name starts with one of the prefixes.
// An empty filter keeps everything.
type eventFilter []string

func parseEventFilter(raw string) eventFilter {
	var f eventFilter
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			f = append(f, p)
		}
	}
	return f
}

func (f eventFilter) match(name string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// wsEventsHandler streams events over a WebSocket. Query parameters:
// backlog=N replays the N most recent events first (default 50, 0 for none),
// filter=sprite.,run. limits the stream to matching event name prefixes.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	backlog := defaultBacklog
	if s := r.URL.Query().Get("backlog"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid backlog", http.StatusBadRequest)
			return
		}
		backlog = n
	}
	filter := parseEventFilter(r.URL.Query().Get("filter"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := events.Subscribe()
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
	}

	send := func(e events.Event) error {
		if !filter.match(e.Name) {
			return nil
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	if backlog > 0 {
		for _, e := range events.RecentEvents(backlog) {
			if err := send(e); err != nil {
				log.Printf("ws write recent event failed: %v", err)
				closeAll()
				return
			}
		}
	}

	// Reader goroutine handles pongs and notices the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				conn.Close()
				return
			}
			if err := send(e); err != nil {
				log.Printf("ws write event failed: %v", err)
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
