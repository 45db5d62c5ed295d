package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type BoardController struct {
	boards  *services.BoardService
	members *services.MemberService
}

func NewBoardController(boards *services.BoardService, members *services.MemberService) *BoardController {
	return &BoardController{boards: boards, members: members}
}

type BoardReq struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

type BoardPatchReq struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

// POST /boards
func (bc *BoardController) Create(c *gin.Context) {
	var req BoardReq
	if !bindJSON(c, &req) {
		return
	}
	b, err := bc.boards.Create(c.Request.Context(), mustUser(c).ID, services.BoardInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Board created", b)
}

// GET /boards
func (bc *BoardController) List(c *gin.Context) {
	boards, err := bc.boards.List(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", boards)
}

// GET /boards/:id
func (bc *BoardController) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	v, err := bc.boards.Get(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", v)
}

// PUT /boards/:id
func (bc *BoardController) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req BoardPatchReq
	if !bindJSON(c, &req) {
		return
	}
	b, err := bc.boards.Update(c.Request.Context(), mustUser(c).ID, id, services.BoardPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Board updated", b)
}

// DELETE /boards/:id
func (bc *BoardController) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := bc.boards.Delete(c.Request.Context(), mustUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Board deleted", nil)
}

// GET /boards/:id/members
func (bc *BoardController) Members(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	ms, err := bc.members.Members(c.Request.Context(), mustUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", ms)
}

type AddMemberReq struct {
	UserID uint   `json:"userId" binding:"required"`
	Role   string `json:"role"`
}

// POST /boards/:id/members
func (bc *BoardController) AddMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req AddMemberReq
	if !bindJSON(c, &req) {
		return
	}
	m, err := bc.members.AddExisting(c.Request.Context(), mustUser(c).ID, id, req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Member added", m)
}

type MemberRoleReq struct {
	Role string `json:"role" binding:"required"`
}

// PUT /boards/:id/members/:userId
func (bc *BoardController) UpdateMemberRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	var req MemberRoleReq
	if !bindJSON(c, &req) {
		return
	}
	m, err := bc.members.UpdateRole(c.Request.Context(), mustUser(c).ID, id, userID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Member role updated", m)
}

// DELETE /boards/:id/members/:userId
func (bc *BoardController) RemoveMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	if err := bc.members.Remove(c.Request.Context(), mustUser(c).ID, id, userID); err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Member removed", nil)
}
