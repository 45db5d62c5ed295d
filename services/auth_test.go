package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.auth.Register(ctx, RegisterInput{Username: "ann", FullName: "Ann", Email: "Ann@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEqual(t, "secret1", u.Password)

	_, err = e.auth.Register(ctx, RegisterInput{Username: "ann2", Email: "ann@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrConflict)
	_, err = e.auth.Register(ctx, RegisterInput{Username: "ann", Email: "other@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrConflict)

	s, err := e.auth.Login(ctx, "ann@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "token-USER", s.AccessToken)
	require.Equal(t, u.ID, s.User.ID)

	_, err = e.auth.Login(ctx, "ann", "secret1")
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, "ann", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.auth.Login(ctx, "nobody", "secret1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestGoogleLoginCreatesAccountOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.user(t, "gina", "someone-else@example.com")

	s, err := e.auth.GoogleLogin(ctx, "google-ok")
	require.NoError(t, err)
	require.Equal(t, "gina@example.com", s.User.Email)
	require.Equal(t, "gina1", s.User.Username)

	again, err := e.auth.GoogleLogin(ctx, "google-ok")
	require.NoError(t, err)
	require.Equal(t, s.User.ID, again.User.ID)

	_, err = e.auth.GoogleLogin(ctx, "forged")
	require.ErrorIs(t, err, ErrUnauthorized)

	found, err := e.auth.FindByEmail(ctx, "GINA@example.com")
	require.NoError(t, err)
	require.Equal(t, s.User.ID, found.ID)
}
