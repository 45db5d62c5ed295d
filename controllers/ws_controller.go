package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/utils"
)

type RealtimeController struct {
	handler *realtime.Handler
	hub     *realtime.Hub
}

func NewRealtimeController(handler *realtime.Handler, hub *realtime.Hub) *RealtimeController {
	return &RealtimeController{handler: handler, hub: hub}
}

// GET /ws/board/:boardId
func (rc *RealtimeController) BoardSocket(c *gin.Context) {
	boardID, ok := uintParam(c, "boardId")
	if !ok {
		return
	}
	rc.handler.ServeBoard(c.Writer, c.Request, boardID)
}

// GET /admin/boards/:id/connections
func (rc *RealtimeController) Connections(c *gin.Context) {
	boardID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	utils.Respond(c, http.StatusOK, "OK", gin.H{
		"boardId":           boardID,
		"activeConnections": rc.hub.ActiveConnections(boardID),
	})
}
