package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sjd-portal/grievance-api/internal/realtime"
	appErrors "github.com/sjd-portal/grievance-api/pkg/errors"
	"github.com/sjd-portal/grievance-api/pkg/response"
)

// WSHandler upgrades authenticated clients onto the realtime event hub.
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler constructs the websocket handler.
func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the portal frontend origin;
			// origin policy is enforced at the edge proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Connect godoc
// @Summary Open the realtime event stream
// @Description Upgrades to a websocket delivering events addressed to the caller
// @Tags Realtime
// @Success 101
// @Failure 401 {object} response.Envelope
// @Router /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.Register(claims.UserID, conn)
}
