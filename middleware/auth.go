package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

const CtxUser = "user"

var errMissingToken = errors.New("missing bearer token")

// UserLoader fetches the account behind a verified token.
type UserLoader interface {
	User(ctx context.Context, userID uint) (*models.User, error)
}

// Auth verifies access tokens and loads the calling user.
type Auth struct {
	tokens *utils.JWTManager
	users  UserLoader
}

func NewAuth(tokens *utils.JWTManager, users UserLoader) *Auth {
	return &Auth{tokens: tokens, users: users}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (a *Auth) subject(raw string) (uint, error) {
	claims, err := a.tokens.VerifyToken(raw)
	if err != nil {
		return 0, err
	}
	return claims.SubjectID()
}

// AuthenticateRequest resolves the user id of a raw HTTP request. Browsers
// cannot set headers on a WebSocket upgrade, so the access_token query
// parameter is accepted as well.
func (a *Auth) AuthenticateRequest(r *http.Request) (uint, error) {
	raw := bearerToken(r)
	if raw == "" {
		raw = r.URL.Query().Get("access_token")
	}
	if raw == "" {
		return 0, errMissingToken
	}
	return a.subject(raw)
}

// AuthJWT checks Authorization: Bearer <token>, loads the user and puts it in
// the context.
func (a *Auth) AuthJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.Request)
		if raw == "" {
			utils.Abort(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		uid, err := a.subject(raw)
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		if !a.attach(c, uid) {
			utils.Abort(c, http.StatusUnauthorized, "User not found")
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := bearerToken(c.Request); raw != "" {
			uid, err := a.subject(raw)
			if err == nil {
				a.attach(c, uid)
			} else {
				utils.LoggerFrom(c.Request.Context()).Debug("ignoring invalid token", slog.Any("error", err))
			}
		}
		c.Next()
	}
}

func (a *Auth) attach(c *gin.Context, uid uint) bool {
	ctx := c.Request.Context()
	user, err := a.users.User(ctx, uid)
	if err != nil {
		return false
	}
	c.Set(CtxUser, *user)
	log := utils.LoggerFrom(ctx).With(slog.Uint64("user_id", uint64(user.ID)))
	c.Request = c.Request.WithContext(utils.WithLogger(ctx, log))
	return true
}

// RequireAdmin blocks routes reserved for global admins.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			utils.Abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if !u.IsAdmin {
			utils.Abort(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by AuthJWT or OptionalAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
