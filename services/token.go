package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/tokenstore"
	"github.com/vnkhanh/taskboard-server/utils"
)

const invitationKeyPrefix = "invitation:"

// ErrTokenNotFound means the token never existed, expired or was consumed.
var ErrTokenNotFound = errors.New("invitation token not found")

// TokenService issues single-use invitation tokens.
type TokenService struct {
	store tokenstore.Store
}

func NewTokenService(store tokenstore.Store) *TokenService {
	return &TokenService{store: store}
}

// Issue stores payload under a fresh random token for ttl.
func (s *TokenService) Issue(ctx context.Context, payload models.InvitationPayload, ttl time.Duration) (string, error) {
	token, err := utils.RandomToken(utils.TokenSize192)
	if err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode invitation payload: %w", err)
	}
	if err := s.store.Set(ctx, invitationKeyPrefix+token, raw, ttl); err != nil {
		return "", fmt.Errorf("store invitation token: %w", err)
	}
	return token, nil
}

// Peek reads the payload without consuming the token.
func (s *TokenService) Peek(ctx context.Context, token string) (*models.InvitationPayload, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	raw, err := s.store.Get(ctx, invitationKeyPrefix+token)
	return s.decode(ctx, raw, err)
}

// Consume reads and deletes the payload in one store operation. Among
// concurrent callers for the same token only one gets the payload.
func (s *TokenService) Consume(ctx context.Context, token string) (*models.InvitationPayload, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}
	raw, err := s.store.GetDel(ctx, invitationKeyPrefix+token)
	return s.decode(ctx, raw, err)
}

func (s *TokenService) decode(ctx context.Context, raw []byte, err error) (*models.InvitationPayload, error) {
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	var p models.InvitationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		utils.LoggerFrom(ctx).Error("corrupt invitation payload", slog.Any("error", err))
		return nil, ErrTokenNotFound
	}
	return &p, nil
}
