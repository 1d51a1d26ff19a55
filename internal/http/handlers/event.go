package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/potalora/ai-web-records-app-take-2/internal/http/response"
	"github.com/potalora/ai-web-records-app-take-2/internal/pkg/ctxutil"
	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
	"github.com/potalora/ai-web-records-app-take-2/internal/realtime"
)

type EventsHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewEventsHandler(hub *realtime.Hub, baseLog *logger.Logger) *EventsHandler {
	return &EventsHandler{
		log: baseLog.With("handler", "EventsHandler"),
		hub: hub,
	}
}

// GET /api/events
//
// Blocks for the life of the SSE connection; the hub handles heartbeats and
// delivery, this handler just owns the client's registration window.
func (h *EventsHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	client := h.hub.NewClient(rd.UserID)
	h.log.Info("event stream open", "user_id", rd.UserID.String(), "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("event stream closed", "user_id", rd.UserID.String(), "client_id", client.ID.String())
}
