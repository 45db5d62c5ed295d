package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
)

// AuthzService evaluates board permissions. It never mutates anything and
// never caches.
type AuthzService struct {
	db *gorm.DB
}

func NewAuthzService(db *gorm.DB) *AuthzService {
	return &AuthzService{db: db}
}

func (a *AuthzService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	var u models.User
	err := a.db.WithContext(ctx).Select("id", "is_admin").First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

func (a *AuthzService) membership(ctx context.Context, userID, boardID uint) (*models.BoardMember, error) {
	var m models.BoardMember
	err := a.db.WithContext(ctx).
		Preload("Role").
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IsOwner reports whether userID is a global admin or holds the OWNER role on boardID.
func (a *AuthzService) IsOwner(ctx context.Context, userID, boardID uint) (bool, error) {
	admin, err := a.IsAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}
	m, err := a.membership(ctx, userID, boardID)
	if err != nil || m == nil {
		return false, err
	}
	return strings.EqualFold(m.Role.Name, models.RoleOwner), nil
}

// IsMember reports whether userID is a global admin or has any membership on boardID.
func (a *AuthzService) IsMember(ctx context.Context, userID, boardID uint) (bool, error) {
	admin, err := a.IsAdmin(ctx, userID)
	if err != nil || admin {
		return admin, err
	}
	m, err := a.membership(ctx, userID, boardID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

func (a *AuthzService) CanInviteMembers(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanEditBoard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanDeleteBoard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanCreateList(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanEditList(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanDeleteList(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanCreateCard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanEditCard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanDeleteCard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsOwner(ctx, userID, boardID)
}

func (a *AuthzService) CanUpdateCard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsMember(ctx, userID, boardID)
}

func (a *AuthzService) CanMoveCard(ctx context.Context, userID, boardID uint) (bool, error) {
	return a.IsMember(ctx, userID, boardID)
}

type permission func(ctx context.Context, userID, boardID uint) (bool, error)

// authorize turns a predicate into an error: denied when the predicate is false.
func authorize(ctx context.Context, check permission, userID, boardID uint, denied error) error {
	ok, err := check(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if !ok {
		return denied
	}
	return nil
}
