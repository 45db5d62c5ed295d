package controllers

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type ExportController struct {
	exports *services.ExportService
}

func NewExportController(exports *services.ExportService) *ExportController {
	return &ExportController{exports: exports}
}

type ExportRequest struct {
	Format string `json:"format"`
}

// POST /boards/:id/export
func (ec *ExportController) Create(c *gin.Context) {
	boardID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req ExportRequest
	// An empty body means csv.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	job, err := ec.exports.Start(c.Request.Context(), mustUser(c).ID, boardID, req.Format)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusAccepted, "Export queued", gin.H{
		"jobId":  job.JobID,
		"status": job.Status,
	})
}

// GET /exports/:jobId streams the file once the job is done and reports the
// job status otherwise.
func (ec *ExportController) Get(c *gin.Context) {
	job, err := ec.exports.Get(c.Request.Context(), mustUser(c).ID, c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}

	if job.Status == models.ExportDone && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, path.Base(*job.FilePath))
		return
	}
	utils.Respond(c, http.StatusOK, "Export "+job.Status, job)
}
