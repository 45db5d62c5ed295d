package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/config"
	"github.com/vnkhanh/taskboard-server/controllers"
	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/middleware"
	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/services"
	"github.com/vnkhanh/taskboard-server/tokenstore"
	"github.com/vnkhanh/taskboard-server/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu      sync.Mutex
	invites []mailer.BoardInvite
}

func (o *outbox) SendBoardInvite(_ context.Context, m mailer.BoardInvite) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invites = append(o.invites, m)
	return nil
}

func (o *outbox) SendAddedToBoard(context.Context, mailer.AddedToBoard) error { return nil }

type memUploader struct{}

func (memUploader) Upload(_ context.Context, folder, fileID, fileName, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "https://files.test/" + folder + "/" + fileID + "-" + fileName, nil
}

type server struct {
	t       *testing.T
	db      *gorm.DB
	jwt     *utils.JWTManager
	router  *gin.Engine
	hub     *realtime.Hub
	outbox  *outbox
	exports *services.ExportService
}

func newServer(t *testing.T) *server {
	t.Helper()

	db, err := config.ConnectDB(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: "file:" + ulid.Make().String() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	box := &outbox{}
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	hub := realtime.NewHub(logger)

	notifier := services.NewNotifier(box)
	t.Cleanup(notifier.Wait)
	authz := services.NewAuthzService(db)
	members := services.NewMemberService(db, authz, notifier, "http://app.test")
	cards := services.NewCardService(db, authz, hub)
	invitations := services.NewInvitationService(db, services.NewTokenService(tokenstore.NewMemory(0)), authz, members, notifier,
		services.InvitationConfig{AcceptBaseURL: "http://api.test/api/scrumboard", TTL: 48 * time.Hour})
	exports := services.NewExportService(db, authz, t.TempDir())
	t.Cleanup(exports.Wait)
	authSvc := services.NewAuthService(db, jwt, nil)
	auth := middleware.NewAuth(jwt, authSvc)

	limiter := middleware.NewIPRateLimiter(1000, 1000, time.Minute)
	t.Cleanup(limiter.Close)

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	SetupRoutes(r, Deps{
		Auth:          auth,
		LoginLimiter:  limiter,
		InviteLimiter: limiter,
		Users:         controllers.NewAuthController(authSvc),
		Boards:        controllers.NewBoardController(services.NewBoardService(db, authz), members),
		Lists:         controllers.NewListController(services.NewListService(db, authz, hub)),
		Cards:         controllers.NewCardController(cards),
		Invitations:   controllers.NewInvitationController(invitations, "http://app.test"),
		Exports:       controllers.NewExportController(exports),
		Attachments:   controllers.NewAttachmentController(services.NewAttachmentService(db, cards, memUploader{}, hub)),
		Realtime:      controllers.NewRealtimeController(realtime.NewHandler(hub, auth, authz, nil), hub),
		Health:        controllers.NewHealthController(db, nil),
	})

	return &server{t: t, db: db, jwt: jwt, router: r, hub: hub, outbox: box, exports: exports}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *server) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *server) signup(username, email string) string {
	s.t.Helper()
	w, _ := s.do(http.MethodPost, "/api/scrumboard/auth/register", "", gin.H{
		"username": username, "fullName": username, "email": email, "password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(http.MethodPost, "/api/scrumboard/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var sess struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &sess))
	return sess.AccessToken
}

func idOf(t *testing.T, raw json.RawMessage) uint {
	t.Helper()
	var v struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &v))
	require.NotZero(t, v.ID)
	return v.ID
}

func TestPing(t *testing.T) {
	s := newServer(t)
	w, _ := s.do(http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"db":"ok"}`, string(env.Data))
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	tok := s.signup("ann", "ann@example.com")

	w, env := s.do(http.MethodGet, "/api/scrumboard/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, string(env.Data), "password")

	w, _ = s.do(http.MethodGet, "/api/scrumboard/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/scrumboard/auth/register", "", gin.H{
		"username": "ann2", "email": "ANN@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "Email already registered", env.Message)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/auth/register", "", gin.H{"username": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/auth/login", "", gin.H{"email": "ann", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/auth/google/login", "", gin.H{"idToken": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/scrumboard/users?email=ANN@example.com", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, uint(1), idOf(t, env.Data))
}

func TestBoardInvitationFlow(t *testing.T) {
	s := newServer(t)
	owner := s.signup("owner", "owner@example.com")
	guest := s.signup("guest", "guest@example.com")

	w, env := s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Roadmap"})
	require.Equal(t, http.StatusCreated, w.Code)
	boardID := idOf(t, env.Data)
	boardPath := fmt.Sprintf("/api/scrumboard/boards/%d", boardID)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Roadmap"})
	require.Equal(t, http.StatusConflict, w.Code)

	w, env = s.do(http.MethodPost, "/api/scrumboard/add/list", owner, gin.H{"boardId": boardID, "name": "Todo"})
	require.Equal(t, http.StatusCreated, w.Code)
	listID := idOf(t, env.Data)

	w, env = s.do(http.MethodPost, "/api/scrumboard/add/card", owner, gin.H{"laneId": listID, "title": "Write docs"})
	require.Equal(t, http.StatusCreated, w.Code)
	cardID := idOf(t, env.Data)

	w, _ = s.do(http.MethodGet, boardPath, guest, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, boardPath+"/invite", guest, gin.H{"email": "guest@example.com"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, boardPath+"/invite", owner, gin.H{"email": "guest@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var invite services.InviteResult
	require.NoError(t, json.Unmarshal(env.Data, &invite))
	require.Equal(t, 48, invite.ExpiresInHours)

	acceptPath := "/api/scrumboard/invitations/accept?token=" + invite.Token

	w, env = s.do(http.MethodGet, acceptPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview struct {
		Email       string `json:"email"`
		UserExists  bool   `json:"userExists"`
		InviteToken string `json:"inviteToken"`
		RedirectURL string `json:"redirectUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	require.Equal(t, "guest@example.com", preview.Email)
	require.True(t, preview.UserExists)
	require.Equal(t, invite.Token, preview.InviteToken)
	require.True(t, strings.HasPrefix(preview.RedirectURL, "http://app.test/signin?redirect="))

	w, env = s.do(http.MethodGet, "/api/scrumboard/invitations/debug/"+invite.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"exists":true`)

	w, _ = s.do(http.MethodGet, acceptPath, owner, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, acceptPath, guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, acceptPath, guest, nil)
	require.Equal(t, http.StatusGone, w.Code)
	require.Equal(t, "Invitation expired or invalid", env.Message)

	w, env = s.do(http.MethodGet, "/api/scrumboard/invitations/debug/"+invite.Token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"exists":false`)

	w, _ = s.do(http.MethodGet, boardPath, guest, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPut, "/api/scrumboard/edit/card", guest, gin.H{"id": cardID, "title": "Write better docs"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/scrumboard/delete/card?id=%d", cardID), guest, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodDelete, "/api/scrumboard/delete/card?id=abc", owner, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, boardPath+"/members", guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ms []models.BoardMember
	require.NoError(t, json.Unmarshal(env.Data, &ms))
	require.Len(t, ms, 2)

	w, _ = s.do(http.MethodDelete, boardPath+"/members/1", owner, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	s.outbox.mu.Lock()
	require.Len(t, s.outbox.invites, 1)
	s.outbox.mu.Unlock()
}

func TestCompleteAfterLogin(t *testing.T) {
	s := newServer(t)
	owner := s.signup("owner", "owner@example.com")
	guest := s.signup("guest", "guest@example.com")

	_, env := s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Ops"})
	boardID := idOf(t, env.Data)

	_, env = s.do(http.MethodPost, fmt.Sprintf("/api/scrumboard/boards/%d/invite", boardID), owner, gin.H{"email": "guest@example.com"})
	var invite services.InviteResult
	require.NoError(t, json.Unmarshal(env.Data, &invite))

	w, _ := s.do(http.MethodPost, "/api/scrumboard/invitations/complete-after-login?token="+invite.Token, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/scrumboard/invitations/complete-after-login?token="+invite.Token, guest, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var joined services.JoinResult
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	require.Equal(t, boardID, joined.BoardID)
	require.Equal(t, "Ops", joined.BoardName)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/invitations/complete", "", gin.H{"token": invite.Token, "userId": 2})
	require.Equal(t, http.StatusGone, w.Code)
}

func TestExportDownload(t *testing.T) {
	s := newServer(t)
	owner := s.signup("owner", "owner@example.com")

	_, env := s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Ops"})
	boardID := idOf(t, env.Data)
	_, env = s.do(http.MethodPost, "/api/scrumboard/add/list", owner, gin.H{"boardId": boardID, "name": "Todo"})
	listID := idOf(t, env.Data)
	s.do(http.MethodPost, "/api/scrumboard/add/card", owner, gin.H{"laneId": listID, "title": "Deploy"})

	w, env := s.do(http.MethodPost, fmt.Sprintf("/api/scrumboard/boards/%d/export", boardID), owner, gin.H{"format": "csv"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var job struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &job))
	s.exports.Wait()

	w, _ = s.do(http.MethodGet, "/api/scrumboard/exports/"+job.JobID, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, w.Body.String(), "Deploy")

	w, _ = s.do(http.MethodPost, fmt.Sprintf("/api/scrumboard/boards/%d/export", boardID), owner, gin.H{"format": "pdf"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttachmentUpload(t *testing.T) {
	s := newServer(t)
	owner := s.signup("owner", "owner@example.com")

	_, env := s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Ops"})
	boardID := idOf(t, env.Data)
	_, env = s.do(http.MethodPost, "/api/scrumboard/add/list", owner, gin.H{"boardId": boardID, "name": "Todo"})
	listID := idOf(t, env.Data)
	_, env = s.do(http.MethodPost, "/api/scrumboard/add/card", owner, gin.H{"laneId": listID, "title": "Deploy"})
	cardID := idOf(t, env.Data)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	path := fmt.Sprintf("/api/scrumboard/attachments/card/%d", cardID)
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = s.do(http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var as []models.CardAttachment
	require.NoError(t, json.Unmarshal(env.Data, &as))
	require.Len(t, as, 1)
	require.Equal(t, "notes.txt", as[0].FileName)
}

func TestBoardSocketReceivesCardEvents(t *testing.T) {
	s := newServer(t)
	owner := s.signup("owner", "owner@example.com")
	stranger := s.signup("stranger", "stranger@example.com")

	_, env := s.do(http.MethodPost, "/api/scrumboard/boards", owner, gin.H{"name": "Ops"})
	boardID := idOf(t, env.Data)
	_, env = s.do(http.MethodPost, "/api/scrumboard/add/list", owner, gin.H{"boardId": boardID, "name": "Todo"})
	listID := idOf(t, env.Data)

	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws/board/%d", boardID)

	_, err := websocket.Dial(wsURL+"?access_token="+stranger, "", ts.URL)
	require.Error(t, err)

	conn, err := websocket.Dial(wsURL+"?access_token="+owner, "", ts.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var ev realtime.Event
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.Equal(t, realtime.ConnectionEstablished, ev.Type)

	adminTok := s.admin()
	w, env := s.do(http.MethodGet, fmt.Sprintf("/api/scrumboard/admin/boards/%d/connections", boardID), adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"activeConnections":1`)

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/scrumboard/admin/boards/%d/connections", boardID), owner, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/api/scrumboard/add/card", owner, gin.H{"laneId": listID, "title": "Deploy"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &ev))
	require.Equal(t, realtime.CardCreated, ev.Type)
	require.Equal(t, fmt.Sprint(boardID), ev.BoardID)
}

func (s *server) admin() string {
	s.t.Helper()
	u := models.User{Username: "root", Email: "root@example.com", IsAdmin: true}
	require.NoError(s.t, s.db.Create(&u).Error)
	tok, err := s.jwt.GenerateToken(u.ID, u.GlobalRole())
	require.NoError(s.t, err)
	return tok
}
