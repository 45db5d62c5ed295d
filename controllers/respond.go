package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/middleware"
	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

var errorStatus = []struct {
	kind   error
	status int
}{
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrUnauthorized, http.StatusUnauthorized},
	{services.ErrPermissionDenied, http.StatusForbidden},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrGone, http.StatusGone},
}

// respondError maps a service error to its status. Anything unclassified is
// logged and reported as 500 without details.
func respondError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.kind) {
			continue
		}
		msg := http.StatusText(e.status)
		var se *services.Error
		if errors.As(err, &se) {
			msg = se.Error()
		}
		utils.Abort(c, e.status, msg)
		return
	}

	utils.LoggerFrom(c.Request.Context()).Error("request failed",
		slog.String("route", c.FullPath()),
		slog.Any("error", err),
	)
	utils.Abort(c, http.StatusInternalServerError, "Internal server error")
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.Abort(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	return parseID(c, c.Param(name))
}

func uintQuery(c *gin.Context, name string) (uint, bool) {
	return parseID(c, c.Query(name))
}

func parseID(c *gin.Context, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		utils.Abort(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// mustUser returns the caller set by AuthJWT.
func mustUser(c *gin.Context) models.User {
	return c.MustGet(middleware.CtxUser).(models.User)
}
