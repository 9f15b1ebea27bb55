package server

import (
	"encoding/json"
	"log/slog"

	"overthinkistan/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// PostFeedHandler streams post events to the connection. Authenticated
// listeners additionally receive reactions to their own posts.
// @Summary Post event stream
// @Description WebSocket upgrade; every text frame is one post event
// @Tags posts
// @Param token query string false "Bearer token for authenticated listeners"
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/posts [get]
func (s *Server) PostFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		refID, _ := conn.Locals(middleware.LocalUserRefID).(string)

		client, err := s.feed.Register(refID, conn)
		if err != nil {
			middleware.Logger.Warn("post feed registration rejected",
				slog.String("user_ref_id", refID), slog.String("error", err.Error()))
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.feed.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
