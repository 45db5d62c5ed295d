package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthzPredicates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	owner := e.user(t, "owner", "owner@example.com")
	member := e.user(t, "member", "member@example.com")
	stranger := e.user(t, "stranger", "stranger@example.com")
	admin := e.admin(t)
	b := e.board(t, owner, "Roadmap")
	e.join(t, b, member)

	tests := []struct {
		name              string
		userID            uint
		isOwner, isMember bool
	}{
		{"owner", owner.ID, true, true},
		{"member", member.ID, false, true},
		{"stranger", stranger.ID, false, false},
		{"admin", admin.ID, true, true},
		{"unknown user", 9999, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.authz.IsOwner(ctx, tt.userID, b.ID)
			require.NoError(t, err)
			require.Equal(t, tt.isOwner, got)

			got, err = e.authz.IsMember(ctx, tt.userID, b.ID)
			require.NoError(t, err)
			require.Equal(t, tt.isMember, got)

			for _, check := range []permission{
				e.authz.CanInviteMembers, e.authz.CanEditBoard, e.authz.CanDeleteBoard,
				e.authz.CanCreateList, e.authz.CanEditList, e.authz.CanDeleteList,
				e.authz.CanCreateCard, e.authz.CanEditCard, e.authz.CanDeleteCard,
			} {
				ok, err := check(ctx, tt.userID, b.ID)
				require.NoError(t, err)
				require.Equal(t, tt.isOwner, ok)
			}
			for _, check := range []permission{e.authz.CanUpdateCard, e.authz.CanMoveCard} {
				ok, err := check(ctx, tt.userID, b.ID)
				require.NoError(t, err)
				require.Equal(t, tt.isMember, ok)
			}
		})
	}
}

func TestAuthzOwnerRoleNameCaseInsensitive(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	owner := e.user(t, "owner", "owner@example.com")
	b := e.board(t, owner, "Roadmap")
	require.NoError(t, e.db.Exec("UPDATE board_roles SET name = 'owner' WHERE board_id = ? AND name = 'OWNER'", b.ID).Error)

	ok, err := e.authz.IsOwner(ctx, owner.ID, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
}
