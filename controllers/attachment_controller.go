package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type AttachmentController struct {
	attachments *services.AttachmentService
}

func NewAttachmentController(attachments *services.AttachmentService) *AttachmentController {
	return &AttachmentController{attachments: attachments}
}

// POST /attachments/card/:cardId (multipart field "file")
func (ac *AttachmentController) Upload(c *gin.Context) {
	cardID, ok := uintParam(c, "cardId")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxAttachmentSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.Abort(c, http.StatusBadRequest, "File is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		utils.Abort(c, http.StatusBadRequest, "Cannot read file")
		return
	}
	defer f.Close()

	a, err := ac.attachments.Upload(c.Request.Context(), mustUser(c).ID, cardID, services.AttachmentUpload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "File uploaded", a)
}

// GET /attachments/card/:cardId
func (ac *AttachmentController) List(c *gin.Context) {
	cardID, ok := uintParam(c, "cardId")
	if !ok {
		return
	}
	as, err := ac.attachments.List(c.Request.Context(), mustUser(c).ID, cardID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", as)
}
