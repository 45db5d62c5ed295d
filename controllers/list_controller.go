package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type ListController struct {
	lists *services.ListService
}

func NewListController(lists *services.ListService) *ListController {
	return &ListController{lists: lists}
}

// GET /list/:boardId
func (lc *ListController) ByBoard(c *gin.Context) {
	boardID, ok := uintParam(c, "boardId")
	if !ok {
		return
	}
	ls, err := lc.lists.Lists(c.Request.Context(), mustUser(c).ID, boardID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", ls)
}

type CreateListReq struct {
	BoardID uint   `json:"boardId" binding:"required"`
	Name    string `json:"name" binding:"required,max=100"`
}

// POST /add/list
func (lc *ListController) Create(c *gin.Context) {
	var req CreateListReq
	if !bindJSON(c, &req) {
		return
	}
	l, err := lc.lists.Create(c.Request.Context(), mustUser(c).ID, req.BoardID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "List created", l)
}

type UpdateListReq struct {
	ID       uint    `json:"id" binding:"required"`
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Position *int    `json:"position" binding:"omitempty,min=0"`
}

// PUT /edit/list
func (lc *ListController) Update(c *gin.Context) {
	var req UpdateListReq
	if !bindJSON(c, &req) {
		return
	}
	l, err := lc.lists.Update(c.Request.Context(), mustUser(c).ID, req.ID, services.ListPatch{
		Name:     req.Name,
		Position: req.Position,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "List updated", l)
}

// DELETE /delete/list?id=
func (lc *ListController) Delete(c *gin.Context) {
	id, ok := uintQuery(c, "id")
	if !ok {
		return
	}
	if err := lc.lists.Delete(c.Request.Context(), mustUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "List deleted", nil)
}
