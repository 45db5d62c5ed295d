package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/vnkhanh/taskboard-server/models"
	"github.com/vnkhanh/taskboard-server/utils"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	GenerateToken(userID uint, role string) (string, error)
}

// IdentityVerifier checks third-party ID tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*utils.GoogleIdentity, error)
}

type AuthService struct {
	db     *gorm.DB
	issuer TokenIssuer
	google IdentityVerifier
}

func NewAuthService(db *gorm.DB, issuer TokenIssuer, google IdentityVerifier) *AuthService {
	return &AuthService{db: db, issuer: issuer, google: google}
}

type RegisterInput struct {
	Username string
	FullName string
	Email    string
	Password string
}

type Session struct {
	AccessToken string      `json:"accessToken"`
	User        models.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, Invalid("Username is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{Username: username, FullName: strings.TrimSpace(in.FullName), Email: email, Password: hash}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	utils.LoggerFrom(ctx).Info("user registered", slog.Uint64("user_id", uint64(u.ID)))
	return &u, nil
}

// Login accepts an email or a username.
func (s *AuthService) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)

	var u models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ? OR username = ?", strings.ToLower(login), login).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(u.Password, password) {
		utils.LoggerFrom(ctx).Warn("login failed", slog.Uint64("user_id", uint64(u.ID)))
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// GoogleLogin signs in with a Google ID token, creating the account on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if s.google == nil {
		return nil, Invalid("Google sign-in is not configured")
	}
	id, err := s.google.Verify(ctx, idToken)
	if err != nil {
		utils.LoggerFrom(ctx).Warn("google login rejected", slog.Any("error", err))
		return nil, newError(ErrUnauthorized, "Invalid Google token")
	}
	if !id.Verified {
		return nil, newError(ErrUnauthorized, "Google email is not verified")
	}

	var u models.User
	err = s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(id.Email)).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		username, err := s.freeUsername(ctx, id.Email)
		if err != nil {
			return nil, err
		}
		u = models.User{Username: username, FullName: id.Name, Email: id.Email}
		if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		utils.LoggerFrom(ctx).Info("user created from google", slog.Uint64("user_id", uint64(u.ID)))
	case err != nil:
		return nil, err
	}
	return s.session(u)
}

func (s *AuthService) freeUsername(ctx context.Context, email string) (string, error) {
	base := email
	if i := strings.Index(email, "@"); i > 0 {
		base = email[:i]
	}
	candidate := base
	for n := 1; n < 100; n++ {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, n)
	}
	return "", newError(ErrConflict, "Could not allocate a username")
}

func (s *AuthService) session(u models.User) (*Session, error) {
	tok, err := s.issuer.GenerateToken(u.ID, u.GlobalRole())
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &Session{AccessToken: tok, User: u}, nil
}

func (s *AuthService) User(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &u, nil
}

// FindByEmail looks a user up case-insensitively.
func (s *AuthService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return &u, nil
}
