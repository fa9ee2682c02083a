package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fidde/signal_explorer/internal/apm"
	"github.com/fidde/signal_explorer/internal/telemetry"
	"github.com/fidde/signal_explorer/pkg/ppl"
)

const (
	defaultPollInterval = 2 * time.Second
	tailWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// tailHandler streams new rows of a client-supplied query to websocket
// clients. Each connection gets its own poller goroutine that re-runs the
// query over the window since the previous poll.
type tailHandler struct {
	ppl          apm.PPLExecutor
	pollInterval time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	quit   chan struct{}
	closed bool
}

func newTailHandler(executor apm.PPLExecutor, pollInterval time.Duration, logger *slog.Logger) *tailHandler {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &tailHandler{
		ppl:          executor,
		pollInterval: pollInterval,
		logger:       logger,
		now:          time.Now,
		quit:         make(chan struct{}),
	}
}

// closeAll stops every active poller. Safe to call more than once.
func (h *tailHandler) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.quit)
	}
}

// handle upgrades the connection and streams poll results until the client
// disconnects or the server shuts down.
// GET /api/v1/livetail?query=...
func (h *tailHandler) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	telemetry.LiveTailClients.Inc()
	defer telemetry.LiveTailClients.Dec()

	// Read pump, detects client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info("live tail started", "query", query)

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	lastPoll := h.now().Unix()
	for {
		select {
		case <-h.quit:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-done:
			return
		case <-ticker.C:
			windowStart := lastPoll
			now := h.now().Unix()

			frame, err := h.ppl.Query(context.Background(),
				query+ppl.BuildEpochTimeFilterClause(windowStart, now))
			if err != nil {
				// Window is retried on the next tick
				h.logger.Error("live tail query failed", "error", err)
				continue
			}
			lastPoll = now

			rows := frame.Transpose()
			if len(rows) == 0 {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(tailWriteTimeout))
			if err := conn.WriteJSON(map[string]interface{}{
				"startTime": windowStart,
				"endTime":   now,
				"rows":      rows,
			}); err != nil {
				return
			}
		}
	}
}
