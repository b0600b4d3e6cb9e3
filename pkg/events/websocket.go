package events

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const observerQueueDepth = 256

// ObserverServer pushes broadcast events to websocket observers. Observers
// are read-only: inbound messages are discarded, so no control authority
// leaks through this surface.
type ObserverServer struct {
	bc       *Broadcaster
	upgrader websocket.Upgrader
	server   *http.Server
	log      *zap.Logger
}

// NewObserverServer wires a websocket endpoint at /ws onto the broadcaster.
func NewObserverServer(bc *Broadcaster, addr string, log *zap.Logger) *ObserverServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &ObserverServer{
		bc: bc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleObserver)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the HTTP server until Shutdown. Errors after shutdown are
// swallowed; startup failures are logged.
func (s *ObserverServer) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("observer server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting observers and closes the listener.
func (s *ObserverServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *ObserverServer) handleObserver(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, cancel := s.bc.Subscribe(observerQueueDepth)
	defer cancel()

	// Drain inbound frames so pings are answered and closes are noticed, but
	// never act on observer input.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for evt := range ch {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(evt); err != nil {
			s.log.Debug("observer write failed, disconnecting", zap.Error(err))
			return
		}
		if data, ok := evt.Data.(ScreenshotUpdateData); ok {
			s.log.Debug("pushed screenshot to observer",
				zap.String("type", data.ScreenshotType),
				zap.String("size", humanize.Bytes(uint64(len(data.ScreenshotData)))))
		}
	}
}
