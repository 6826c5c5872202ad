package handlers

import (
	"net/http"
	"time"

	"golang.org/x/net/websocket"
)

// StatusFeed pushes stats snapshots to websocket clients. It is a read-only
// observer of the monitor; clients never mutate core state.
type StatusFeed struct {
	stats    statsSource
	interval time.Duration
}

func NewStatusFeed(stats statsSource) *StatusFeed {
	return &StatusFeed{stats: stats, interval: 2 * time.Second}
}

func (f *StatusFeed) WithInterval(d time.Duration) *StatusFeed {
	if d > 0 {
		f.interval = d
	}
	return f
}

// HandleWebSocket upgrades the connection and streams snapshots until the
// client goes away.
// GET /ws/status
func (f *StatusFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(f.serve).ServeHTTP(w, r)
}

func (f *StatusFeed) serve(conn *websocket.Conn) {
	defer conn.Close()
	ctx := conn.Request().Context()

	if err := websocket.JSON.Send(conn, f.stats.Snapshot()); err != nil {
		return
	}
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := websocket.JSON.Send(conn, f.stats.Snapshot()); err != nil {
				return
			}
		}
	}
}
