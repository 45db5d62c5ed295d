package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/vnkhanh/taskboard-server/utils"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger puts a request-scoped logger carrying req_id into the request
// context and writes one http_request line when the handler returns.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = ulid.Make().String()
		}
		c.Header(HeaderRequestID, reqID)

		log := base.With(slog.String("req_id", reqID))
		c.Request = c.Request.WithContext(utils.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		// URL.Path only: the query may carry an access token.
		log.LogAttrs(c.Request.Context(), level, "http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
