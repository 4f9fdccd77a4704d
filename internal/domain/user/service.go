// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Repository persists users
type Repository interface {
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// Create fails with apperror.ErrDuplicate when the email is taken
	Create(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	ListAdminIDs(ctx context.Context) ([]uint, error)
}

// Notifier records in-app notifications
type Notifier interface {
	Notify(ctx context.Context, userID uint, msg notification.Message) (*notification.Notification, error)
	NotifyAdmins(ctx context.Context, msg notification.Message) error
}

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrUnauthorized)

// Service handles user business logic
type Service struct {
	repo      Repository
	passwords *auth.PasswordManager
	tokens    *auth.JWTManager
	notifier  Notifier
	log       logrus.FieldLogger
}

// NewService creates a new user service
func NewService(repo Repository, passwords *auth.PasswordManager, tokens *auth.JWTManager, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		passwords: passwords,
		tokens:    tokens,
		notifier:  notifier,
		log:       log,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Phone           string `json:"phone"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register creates a new user account and tells the admins about it
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperror.Invalid("passwords do not match")
	}

	hashedPassword, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Invalid("%v", err)
	}

	u := &User{
		Email:     NormalizeEmail(req.Email),
		Password:  hashedPassword,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, fmt.Errorf("user with this email already exists: %w", apperror.ErrDuplicate)
		}
		return nil, err
	}

	if s.notifier != nil {
		err := s.notifier.NotifyAdmins(ctx, notification.Message{
			Type:            notification.TypeNewUser,
			Title:           "New customer registered",
			Body:            fmt.Sprintf("%s (%s) created an account", u.GetDisplayName(), u.Email),
			RelatedEntity:   "user",
			RelatedEntityID: &u.ID,
		})
		if err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to notify admins of new user")
		}
	}

	return s.issue(ctx, u)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.passwords.VerifyPassword(req.Password, u.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, u)
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.passwords.VerifyPassword(req.CurrentPassword, u.Password); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.passwords.HashPassword(req.NewPassword)
	if err != nil {
		return apperror.Invalid("%v", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, userID, notification.Message{
			Type:     notification.TypePasswordChanged,
			Title:    "Password changed",
			Body:     "Your password was changed. If this was not you, contact support.",
			Priority: notification.PriorityHigh,
		})
		if err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("Failed to notify password change")
		}
	}
	return nil
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperror.NotFound("user", userID)
	}
	return u, nil
}

// ListAdminIDs returns the ids of every active admin
func (s *Service) ListAdminIDs(ctx context.Context) ([]uint, error) {
	return s.repo.ListAdminIDs(ctx)
}

func (s *Service) issue(ctx context.Context, u *User) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to record last login")
	} else {
		u.LastLoginAt = &now
	}

	return &AuthResponse{
		User:        u,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
	}, nil
}
