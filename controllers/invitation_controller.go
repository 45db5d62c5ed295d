package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/middleware"
	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type InvitationController struct {
	invitations *services.InvitationService
	frontendURL string
}

func NewInvitationController(invitations *services.InvitationService, frontendURL string) *InvitationController {
	return &InvitationController{invitations: invitations, frontendURL: strings.TrimRight(frontendURL, "/")}
}

type InviteReq struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /boards/:id/invite
func (ic *InvitationController) Invite(c *gin.Context) {
	boardID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req InviteReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := ic.invitations.Invite(c.Request.Context(), boardID, req.Email, mustUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Invitation sent", res)
}

// acceptPreview is returned to callers that still have to sign in.
type acceptPreview struct {
	*services.InvitationPreview
	RedirectURL string `json:"redirectUrl"`
}

// GET /invitations/accept?token=
func (ic *InvitationController) Accept(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		utils.Abort(c, http.StatusBadRequest, "token is required")
		return
	}

	var current *uint
	if u, ok := middleware.CurrentUser(c); ok {
		current = &u.ID
	}

	res, err := ic.invitations.Accept(c.Request.Context(), token, current)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Joined != nil {
		utils.Respond(c, http.StatusOK, "Joined board", res.Joined)
		return
	}
	utils.Respond(c, http.StatusOK, "Sign in to accept the invitation", acceptPreview{
		InvitationPreview: res.Preview,
		RedirectURL:       ic.redirectURL(res.Preview, token),
	})
}

func (ic *InvitationController) redirectURL(p *services.InvitationPreview, token string) string {
	back := url.QueryEscape("/invitations/accept?token=" + token)
	if p.UserExists {
		return ic.frontendURL + "/signin?redirect=" + back
	}
	return ic.frontendURL + "/signup?email=" + url.QueryEscape(p.Email) + "&redirect=" + back
}

type CompleteReq struct {
	Token  string `json:"token" binding:"required"`
	UserID uint   `json:"userId" binding:"required"`
}

// POST /invitations/complete
func (ic *InvitationController) Complete(c *gin.Context) {
	var req CompleteReq
	if !bindJSON(c, &req) {
		return
	}
	ic.complete(c, req.Token, req.UserID)
}

// POST /invitations/complete-after-login?token=
func (ic *InvitationController) CompleteAfterLogin(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		utils.Abort(c, http.StatusBadRequest, "token is required")
		return
	}
	ic.complete(c, token, mustUser(c).ID)
}

func (ic *InvitationController) complete(c *gin.Context, token string, userID uint) {
	res, err := ic.invitations.Complete(c.Request.Context(), token, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Joined board", res)
}

// GET /invitations/debug/:token
func (ic *InvitationController) Debug(c *gin.Context) {
	p, err := ic.invitations.Preview(c.Request.Context(), c.Param("token"))
	switch {
	case errors.Is(err, services.ErrGone):
		utils.Respond(c, http.StatusOK, "Debug result", gin.H{"exists": false, "message": "Token not found or expired"})
	case err != nil:
		respondError(c, err)
	default:
		utils.Respond(c, http.StatusOK, "Debug result", gin.H{"exists": true, "data": p})
	}
}
