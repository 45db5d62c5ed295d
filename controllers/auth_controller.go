package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/utils"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type RegisterReq struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	FullName string `json:"fullName" binding:"max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// POST /auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterReq
	if !bindJSON(c, &req) {
		return
	}

	u, err := ac.auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Account created", u)
}

// LoginReq accepts either an email or a username in Email.
type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginReq
	if !bindJSON(c, &req) {
		return
	}
	s, err := ac.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Login successful", s)
}

type GoogleLoginReq struct {
	IDToken string `json:"idToken" binding:"required"`
}

// POST /auth/google/login
func (ac *AuthController) GoogleLogin(c *gin.Context) {
	var req GoogleLoginReq
	if !bindJSON(c, &req) {
		return
	}
	s, err := ac.auth.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Login successful", s)
}

// GET /me
func (ac *AuthController) Me(c *gin.Context) {
	utils.Respond(c, http.StatusOK, "OK", mustUser(c))
}

// GET /users?email=
func (ac *AuthController) GetUserByEmail(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		utils.Abort(c, http.StatusBadRequest, "email is required")
		return
	}
	u, err := ac.auth.FindByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "OK", u)
}
