package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/tokenstore"
)

func samplePayload() models.InvitationPayload {
	return models.InvitationPayload{Email: "x@y.com", BoardID: 7, BoardName: "Roadmap", InvitedByID: 1, RoleID: 2}
}

func TestTokenIssuePeekConsume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := tokenstore.NewMemory(0)
	svc := NewTokenService(store)

	token, err := svc.Issue(ctx, samplePayload(), time.Hour)
	require.NoError(t, err)
	require.Len(t, token, 32)

	raw, err := store.Get(ctx, "invitation:"+token)
	require.NoError(t, err)
	require.JSONEq(t, `{"email":"x@y.com","boardId":7,"boardName":"Roadmap","invitedById":1,"roleId":2}`, string(raw))

	for i := 0; i < 5; i++ {
		p, err := svc.Peek(ctx, token)
		require.NoError(t, err)
		require.Equal(t, samplePayload(), *p)
	}

	p, err := svc.Consume(ctx, token)
	require.NoError(t, err)
	require.Equal(t, samplePayload(), *p)

	_, err = svc.Consume(ctx, token)
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = svc.Peek(ctx, token)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenUnknownAndEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTokenService(tokenstore.NewMemory(0))

	_, err := svc.Peek(ctx, "")
	require.ErrorIs(t, err, ErrTokenNotFound)
	_, err = svc.Consume(ctx, "nope")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenCorruptPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := tokenstore.NewMemory(0)
	require.NoError(t, store.Set(ctx, "invitation:bad", []byte("{not json"), time.Hour))

	_, err := NewTokenService(store).Peek(ctx, "bad")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenConsumeAtMostOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTokenService(tokenstore.NewMemory(0))

	token, err := svc.Issue(ctx, samplePayload(), time.Hour)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Consume(ctx, token); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestTokensAreUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewTokenService(tokenstore.NewMemory(0))

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := svc.Issue(ctx, samplePayload(), time.Hour)
		require.NoError(t, err)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
