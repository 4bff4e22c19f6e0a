package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecpap/tecpap-ai/internal/metrics"
)

// alertPushInterval is how often active alerts are pushed to stream clients.
const alertPushInterval = 5 * time.Second

// handleAlertStream upgrades to a WebSocket and pushes the current alert set
// at a fixed cadence until the client disconnects or the server stops.
func (s *Server) handleAlertStream(serverCtx context.Context) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		metrics.StreamClients.Inc()
		defer metrics.StreamClients.Dec()
		s.logger.Info("alert stream client connected", zap.String("remote", r.RemoteAddr))

		// Reader goroutine: drains control frames and detects disconnects.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(alertPushInterval)
		defer ticker.Stop()

		for {
			alerts, err := s.engines.Expert.ActiveAlerts(r.Context())
			if err != nil {
				s.logger.Warn("alert stream read failed", zap.Error(err))
				return
			}
			payload := map[string]any{
				"alerts":    alerts,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(payload); err != nil {
				return
			}

			select {
			case <-ticker.C:
			case <-clientGone:
				return
			case <-serverCtx.Done():
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
		}
	}
}

// checkOrigin enforces the configured origin allowlist. "*" allows all.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
