package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/support-chat/internal/realtime"
)

// Gateway upgrades HTTP connections and streams a ticket's realtime
// channels (messages, typing, presence) as JSON frames.
type Gateway struct {
	broker   *realtime.Broker
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewGateway constructs the gateway.
func NewGateway(broker *realtime.Broker, logger *zap.Logger) *Gateway {
	return &Gateway{
		broker: broker,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the demo frontend origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler serves GET /ws?ticket=<id>.
func (g *Gateway) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticketID := r.URL.Query().Get("ticket")
		if ticketID == "" {
			http.Error(w, "ticket query parameter is required", http.StatusBadRequest)
			return
		}

		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		connID := uuid.NewString()
		sub := g.broker.Subscribe(realtime.TicketChannels(ticketID)...)
		g.logger.Info("websocket client connected",
			zap.String("conn_id", connID),
			zap.String("ticket_id", ticketID))

		done := make(chan struct{})
		go g.readLoop(conn, done)
		g.writeLoop(conn, sub, done)

		sub.Close()
		_ = conn.Close()
		g.logger.Info("websocket client disconnected",
			zap.String("conn_id", connID),
			zap.String("ticket_id", ticketID))
	}
}

// readLoop drains inbound frames so close and ping control messages are
// processed; clients send data over the REST API, not the socket.
func (g *Gateway) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) writeLoop(conn *websocket.Conn, sub *realtime.Subscription, done <-chan struct{}) {
	for {
		select {
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
