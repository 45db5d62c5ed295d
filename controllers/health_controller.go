package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is an optional dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	db    *gorm.DB
	extra map[string]Pinger
}

func NewHealthController(db *gorm.DB, extra map[string]Pinger) *HealthController {
	return &HealthController{db: db, extra: extra}
}

// GET /health
func (hc *HealthController) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"db": "ok"}
	status := http.StatusOK

	sqlDB, err := hc.db.DB()
	if err != nil {
		checks["db"] = "error: cannot get DB instance"
		status = http.StatusServiceUnavailable
	} else if err := sqlDB.PingContext(ctx); err != nil {
		checks["db"] = "error: cannot connect to DB"
		status = http.StatusServiceUnavailable
	}

	for name, p := range hc.extra {
		checks[name] = "ok"
		if err := p.Ping(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	msg := "Service is healthy"
	if status != http.StatusOK {
		msg = "Service is degraded"
	}
	c.JSON(status, gin.H{"status": status, "message": msg, "data": checks})
}
