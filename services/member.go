package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

type MemberService struct {
	db          *gorm.DB
	authz       *AuthzService
	notifier    *Notifier
	frontendURL string
}

func NewMemberService(db *gorm.DB, authz *AuthzService, notifier *Notifier, frontendURL string) *MemberService {
	return &MemberService{db: db, authz: authz, notifier: notifier, frontendURL: strings.TrimRight(frontendURL, "/")}
}

// DefaultRole returns the role given to invited members.
func (s *MemberService) DefaultRole(ctx context.Context, boardID uint) (*models.BoardRole, error) {
	var r models.BoardRole
	err := s.db.WithContext(ctx).Where("board_id = ? AND is_default = ?", boardID, true).First(&r).Error
	if err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return &r, nil
}

func (s *MemberService) roleByName(ctx context.Context, boardID uint, name string) (*models.BoardRole, error) {
	var r models.BoardRole
	err := s.db.WithContext(ctx).Where("board_id = ? AND UPPER(name) = ?", boardID, strings.ToUpper(name)).First(&r).Error
	if err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return &r, nil
}

// HasMembership reports whether a membership row exists. Unlike
// AuthzService.IsMember it ignores the admin flag.
func (s *MemberService) HasMembership(ctx context.Context, boardID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).Count(&count).Error
	return count > 0, err
}

// AddMember commits a membership row. It is the single place memberships
// are created after board creation.
func (s *MemberService) AddMember(ctx context.Context, boardID, userID uint, invitedByID *uint, roleID uint) (*models.BoardMember, error) {
	exists, err := s.HasMembership(ctx, boardID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	m := models.BoardMember{
		BoardID:     boardID,
		UserID:      userID,
		RoleID:      roleID,
		InvitedByID: invitedByID,
		JoinedAt:    time.Now(),
		Status:      models.MemberStatusActive,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	utils.LoggerFrom(ctx).Info("member added",
		slog.Uint64("board_id", uint64(boardID)),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("role_id", uint64(roleID)),
	)
	return &m, nil
}

func (s *MemberService) Members(ctx context.Context, actorID, boardID uint) ([]models.BoardMember, error) {
	if err := authorize(ctx, s.authz.IsMember, actorID, boardID, ErrNotBoardMember); err != nil {
		return nil, err
	}
	var members []models.BoardMember
	err := s.db.WithContext(ctx).Preload("User").Preload("Role").
		Where("board_id = ?", boardID).Order("joined_at").Find(&members).Error
	return members, err
}

// AddExisting adds a registered user directly, without an invitation, and
// notifies them by email. An empty roleName means the default role.
func (s *MemberService) AddExisting(ctx context.Context, actorID, boardID, userID uint, roleName string) (*models.BoardMember, error) {
	var board models.Board
	if err := s.db.WithContext(ctx).First(&board, boardID).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	if err := authorize(ctx, s.authz.IsOwner, actorID, boardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	role, err := s.resolveRole(ctx, boardID, roleName)
	if err != nil {
		return nil, err
	}

	m, err := s.AddMember(ctx, boardID, userID, &actorID, role.ID)
	if err != nil {
		return nil, err
	}

	var actor models.User
	_ = s.db.WithContext(ctx).Select("id", "full_name", "username").First(&actor, actorID).Error
	s.notifier.AddedToBoard(ctx, mailer.AddedToBoard{
		To:        user.Email,
		BoardName: board.Name,
		AdderName: displayName(actor),
		BoardLink: fmt.Sprintf("%s/boards/%d", s.frontendURL, boardID),
	})
	return m, nil
}

func (s *MemberService) resolveRole(ctx context.Context, boardID uint, roleName string) (*models.BoardRole, error) {
	if strings.TrimSpace(roleName) == "" {
		return s.DefaultRole(ctx, boardID)
	}
	return s.roleByName(ctx, boardID, strings.TrimSpace(roleName))
}

// UpdateRole changes a member's role. The last OWNER cannot be demoted.
func (s *MemberService) UpdateRole(ctx context.Context, actorID, boardID, userID uint, roleName string) (*models.BoardMember, error) {
	if err := authorize(ctx, s.authz.IsOwner, actorID, boardID, ErrNotBoardOwner); err != nil {
		return nil, err
	}
	role, err := s.resolveRole(ctx, boardID, roleName)
	if err != nil {
		return nil, err
	}

	var m models.BoardMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Role").Where("board_id = ? AND user_id = ?", boardID, userID).First(&m).Error; err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if isOwnerRole(m.Role) && !isOwnerRole(*role) {
			if err := ensureAnotherOwner(tx, boardID, m.ID); err != nil {
				return err
			}
		}
		m.RoleID = role.ID
		m.Role = *role
		return tx.Model(&m).Update("role_id", role.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Remove deletes a membership. The last OWNER cannot be removed.
func (s *MemberService) Remove(ctx context.Context, actorID, boardID, userID uint) error {
	if err := authorize(ctx, s.authz.IsOwner, actorID, boardID, ErrNotBoardOwner); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.BoardMember
		if err := tx.Preload("Role").Where("board_id = ? AND user_id = ?", boardID, userID).First(&m).Error; err != nil {
			return notFound(err, ErrMemberNotFound)
		}
		if isOwnerRole(m.Role) {
			if err := ensureAnotherOwner(tx, boardID, m.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&m).Error
	})
}

func isOwnerRole(r models.BoardRole) bool {
	return strings.EqualFold(r.Name, models.RoleOwner)
}

func ensureAnotherOwner(tx *gorm.DB, boardID, exceptMemberID uint) error {
	var count int64
	err := tx.Model(&models.BoardMember{}).
		Joins("JOIN board_roles ON board_roles.id = board_members.role_id").
		Where("board_members.board_id = ? AND board_members.id <> ? AND UPPER(board_roles.name) = ?",
			boardID, exceptMemberID, models.RoleOwner).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrLastOwner
	}
	return nil
}

func displayName(u models.User) string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
