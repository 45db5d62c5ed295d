package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/mailer"
	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

type InvitationConfig struct {
	// AcceptBaseURL prefixes the accept link, e.g. https://api.example.com/api/scrumboard.
	AcceptBaseURL string
	TTL           time.Duration
	// ValidateBeforeConsume makes Complete check the user before burning the token.
	ValidateBeforeConsume bool
}

// InvitationService runs the invite, accept and complete lifecycle.
type InvitationService struct {
	db       *gorm.DB
	tokens   *TokenService
	authz    *AuthzService
	members  *MemberService
	notifier *Notifier
	cfg      InvitationConfig
}

func NewInvitationService(db *gorm.DB, tokens *TokenService, authz *AuthzService, members *MemberService, notifier *Notifier, cfg InvitationConfig) *InvitationService {
	cfg.AcceptBaseURL = strings.TrimRight(cfg.AcceptBaseURL, "/")
	return &InvitationService{
		db:       db,
		tokens:   tokens,
		authz:    authz,
		members:  members,
		notifier: notifier,
		cfg:      cfg,
	}
}

type InviteResult struct {
	Token          string `json:"token"`
	ExpiresInHours int    `json:"expiresInHours"`
}

type InvitationPreview struct {
	Email      string `json:"email"`
	BoardID    uint   `json:"boardId"`
	BoardName  string `json:"boardName"`
	Token      string `json:"inviteToken"`
	RoleID     uint   `json:"roleId"`
	UserExists bool   `json:"userExists"`
}

type JoinResult struct {
	BoardID   uint                `json:"boardId"`
	BoardName string              `json:"boardName"`
	RoleID    uint                `json:"roleId"`
	Member    *models.BoardMember `json:"member"`
}

// AcceptResult holds exactly one of Joined or Preview.
type AcceptResult struct {
	Joined  *JoinResult
	Preview *InvitationPreview
}

func (s *InvitationService) AcceptLink(token string) string {
	return s.cfg.AcceptBaseURL + "/invitations/accept?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (s *InvitationService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Invite issues an invitation token for email on boardID and emails the
// accept link. A failed email does not fail the invitation.
func (s *InvitationService) Invite(ctx context.Context, boardID uint, email string, inviterID uint) (*InviteResult, error) {
	log := utils.LoggerFrom(ctx).With(
		slog.Uint64("board_id", uint64(boardID)),
		slog.Uint64("inviter_id", uint64(inviterID)),
	)

	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, Invalid("A valid email is required")
	}

	// 1. Only owners invite.
	if err := authorize(ctx, s.authz.CanInviteMembers, inviterID, boardID, ErrNotOwnerInvite); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			log.Warn("invite rejected: not owner")
		}
		return nil, err
	}

	// 2. Board must exist.
	var board models.Board
	if err := s.db.WithContext(ctx).First(&board, boardID).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}

	// 3. Reject before issuing a token if the invitee already belongs to the board.
	invitee, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if invitee != nil {
		exists, err := s.members.HasMembership(ctx, boardID, invitee.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			log.Warn("invite rejected: already member", slog.Uint64("user_id", uint64(invitee.ID)))
			return nil, ErrAlreadyMember
		}
	}

	// 4. Invitees join with the board's default role.
	role, err := s.members.DefaultRole(ctx, boardID)
	if err != nil {
		return nil, err
	}

	// 5. Issue the token.
	token, err := s.tokens.Issue(ctx, models.InvitationPayload{
		Email:       email,
		BoardID:     board.ID,
		BoardName:   board.Name,
		InvitedByID: inviterID,
		RoleID:      role.ID,
	}, s.cfg.TTL)
	if err != nil {
		log.Error("failed to issue invitation token", slog.Any("error", err))
		return nil, err
	}

	// 6. Email the link off the request path.
	var inviter models.User
	_ = s.db.WithContext(ctx).Select("id", "full_name", "username").First(&inviter, inviterID).Error
	hours := int(s.cfg.TTL / time.Hour)
	s.notifier.BoardInvite(ctx, mailer.BoardInvite{
		To:             email,
		BoardName:      board.Name,
		InviterName:    displayName(inviter),
		AcceptLink:     s.AcceptLink(token),
		ExpiresInHours: hours,
	})

	log.Info("invitation issued", slog.String("email", email))
	return &InviteResult{Token: token, ExpiresInHours: hours}, nil
}

// Accept previews the invitation for anonymous callers and joins the board
// for authenticated ones. The token is only consumed once every check passed.
func (s *InvitationService) Accept(ctx context.Context, token string, currentUserID *uint) (*AcceptResult, error) {
	log := utils.LoggerFrom(ctx)

	// 1. Token must still be live.
	payload, err := s.tokens.Peek(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			log.Warn("accept rejected: invitation expired or invalid")
			return nil, ErrInvitationInvalid
		}
		return nil, err
	}

	// 2. Anonymous callers only get a preview.
	if currentUserID == nil {
		invitee, err := s.userByEmail(ctx, payload.Email)
		if err != nil {
			return nil, err
		}
		return &AcceptResult{Preview: &InvitationPreview{
			Email:      payload.Email,
			BoardID:    payload.BoardID,
			BoardName:  payload.BoardName,
			Token:      token,
			RoleID:     payload.RoleID,
			UserExists: invitee != nil,
		}}, nil
	}

	// 3. Validate the user against the invitation.
	if err := s.validateInvitee(ctx, payload, *currentUserID); err != nil {
		return nil, err
	}

	// 4. Consume. Losing the race means another request already joined.
	payload, err = s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			log.Warn("accept rejected: token consumed concurrently")
			return nil, ErrInvitationUsed
		}
		return nil, err
	}

	// 5. Commit membership.
	joined, err := s.join(ctx, payload, *currentUserID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{Joined: joined}, nil
}

// Complete finishes an invitation after login. By default the token is
// consumed before the user is validated, so a failed validation loses the
// invitation. With ValidateBeforeConsume the checks run first.
func (s *InvitationService) Complete(ctx context.Context, token string, userID uint) (*JoinResult, error) {
	log := utils.LoggerFrom(ctx).With(slog.Uint64("user_id", uint64(userID)))

	if s.cfg.ValidateBeforeConsume {
		payload, err := s.tokens.Peek(ctx, token)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return nil, ErrInvitationUsed
			}
			return nil, err
		}
		if err := s.validateInvitee(ctx, payload, userID); err != nil {
			return nil, err
		}
	}

	payload, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			log.Warn("complete rejected: invitation used or expired")
			return nil, ErrInvitationUsed
		}
		return nil, err
	}

	if !s.cfg.ValidateBeforeConsume {
		if err := s.validateInvitee(ctx, payload, userID); err != nil {
			log.Warn("complete failed after consuming invitation", slog.Any("error", err))
			return nil, err
		}
	}

	return s.join(ctx, payload, userID)
}

// Preview returns the decoded invitation without consuming it.
func (s *InvitationService) Preview(ctx context.Context, token string) (*InvitationPreview, error) {
	res, err := s.Accept(ctx, token, nil)
	if err != nil {
		return nil, err
	}
	return res.Preview, nil
}

func (s *InvitationService) validateInvitee(ctx context.Context, payload *models.InvitationPayload, userID uint) error {
	log := utils.LoggerFrom(ctx).With(
		slog.Uint64("board_id", uint64(payload.BoardID)),
		slog.Uint64("user_id", uint64(userID)),
	)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if !strings.EqualFold(strings.TrimSpace(user.Email), payload.Email) {
		log.Warn("invitation rejected: email mismatch")
		return ErrEmailMismatch
	}

	exists, err := s.members.HasMembership(ctx, payload.BoardID, userID)
	if err != nil {
		return err
	}
	if exists {
		log.Warn("invitation rejected: already member")
		return ErrAlreadyMember
	}
	return nil
}

func (s *InvitationService) join(ctx context.Context, payload *models.InvitationPayload, userID uint) (*JoinResult, error) {
	invitedBy := payload.InvitedByID
	m, err := s.members.AddMember(ctx, payload.BoardID, userID, &invitedBy, payload.RoleID)
	if err != nil {
		return nil, err
	}
	utils.LoggerFrom(ctx).Info("invitation accepted",
		slog.Uint64("board_id", uint64(payload.BoardID)),
		slog.Uint64("user_id", uint64(userID)),
	)
	return &JoinResult{
		BoardID:   payload.BoardID,
		BoardName: payload.BoardName,
		RoleID:    payload.RoleID,
		Member:    m,
	}, nil
}
