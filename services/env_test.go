package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/config"
	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/realtime"
	"github.com/vnkhanh/taskboard-server/tokenstore"
	"github.com/vnkhanh/taskboard-server/utils"
)

type fakeMailer struct {
	mu      sync.Mutex
	invites []mailer.BoardInvite
	added   []mailer.AddedToBoard
	err     error
}

func (m *fakeMailer) SendBoardInvite(_ context.Context, msg mailer.BoardInvite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, msg)
	return m.err
}

func (m *fakeMailer) SendAddedToBoard(_ context.Context, msg mailer.AddedToBoard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, msg)
	return m.err
}

func (m *fakeMailer) sentInvites() []mailer.BoardInvite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.BoardInvite(nil), m.invites...)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, _ uint, ev realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

func (b *recordingBroadcaster) last() realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return realtime.Event{}
	}
	return b.events[len(b.events)-1]
}

// countingStore counts writes so tests can assert no token was issued.
type countingStore struct {
	tokenstore.Store
	sets atomic.Int32
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets.Add(1)
	return c.Store.Set(ctx, key, value, ttl)
}

type fakeIssuer struct{}

func (fakeIssuer) GenerateToken(userID uint, role string) (string, error) {
	return "token-" + role, nil
}

type fakeGoogle struct{}

func (fakeGoogle) Verify(_ context.Context, raw string) (*utils.GoogleIdentity, error) {
	if raw != "google-ok" {
		return nil, errors.New("bad token")
	}
	return &utils.GoogleIdentity{Email: "gina@example.com", Name: "Gina", Verified: true}, nil
}

type testEnv struct {
	db       *gorm.DB
	store    *countingStore
	mail     *fakeMailer
	events   *recordingBroadcaster
	notifier *Notifier

	authz       *AuthzService
	tokens      *TokenService
	boards      *BoardService
	members     *MemberService
	lists       *ListService
	cards       *CardService
	invitations *InvitationService
	exports     *ExportService
	auth        *AuthService
}

type envOption func(*InvitationConfig)

func validateFirst(c *InvitationConfig) { c.ValidateBeforeConsume = true }

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.ConnectDB(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: "file:" + ulid.Make().String() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	e := &testEnv{
		db:     newDB(t),
		store:  &countingStore{Store: tokenstore.NewMemory(0)},
		mail:   &fakeMailer{},
		events: &recordingBroadcaster{},
	}
	e.notifier = NewNotifier(e.mail)
	t.Cleanup(e.notifier.Wait)

	cfg := InvitationConfig{AcceptBaseURL: "http://localhost:8080/api/scrumboard/", TTL: 48 * time.Hour}
	for _, o := range opts {
		o(&cfg)
	}

	e.authz = NewAuthzService(e.db)
	e.tokens = NewTokenService(e.store)
	e.boards = NewBoardService(e.db, e.authz)
	e.members = NewMemberService(e.db, e.authz, e.notifier, "http://localhost:5173")
	e.lists = NewListService(e.db, e.authz, e.events)
	e.cards = NewCardService(e.db, e.authz, e.events)
	e.invitations = NewInvitationService(e.db, e.tokens, e.authz, e.members, e.notifier, cfg)
	e.exports = NewExportService(e.db, e.authz, t.TempDir())
	t.Cleanup(e.exports.Wait)
	e.auth = NewAuthService(e.db, fakeIssuer{}, fakeGoogle{})
	return e
}

func (e *testEnv) user(t *testing.T, username, email string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: email, FullName: username}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *testEnv) admin(t *testing.T) models.User {
	t.Helper()
	u := models.User{Username: "root", Email: "root@example.com", IsAdmin: true}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *testEnv) board(t *testing.T, owner models.User, name string) models.Board {
	t.Helper()
	b, err := e.boards.Create(context.Background(), owner.ID, BoardInput{Name: name})
	require.NoError(t, err)
	return *b
}

// join adds u to b with the default role.
func (e *testEnv) join(t *testing.T, b models.Board, u models.User) {
	t.Helper()
	ctx := context.Background()
	role, err := e.members.DefaultRole(ctx, b.ID)
	require.NoError(t, err)
	_, err = e.members.AddMember(ctx, b.ID, u.ID, nil, role.ID)
	require.NoError(t, err)
}
