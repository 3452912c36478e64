package services

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminSubject is the token subject of the operator account
const AdminSubject = "admin"

// Compile-time check to ensure authService implements AuthService
var _ AuthService = (*authService)(nil)

type authService struct {
	passwordHash []byte
	tokens       *jwt.TokenService
	logger       *zap.Logger
}

// NewAuthService creates a new AuthService implementation
func NewAuthService(passwordHash string, tokens *jwt.TokenService, logger *zap.Logger) AuthService {
	return &authService{
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
		logger:       logger,
	}
}

// AdminLogin checks password against the configured bcrypt hash
func (s *authService) AdminLogin(ctx context.Context, password string) (string, time.Time, error) {
	if len(s.passwordHash) == 0 {
		return "", time.Time{}, &apperrors.Error{
			Kind:    apperrors.KindUnavailable,
			Code:    "ADMIN_LOGIN_DISABLED",
			Message: "admin login is not configured",
		}
	}
	if password == "" {
		return "", time.Time{}, apperrors.Validation("password is required")
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Error("admin password hash is unusable", zap.Error(err))
		}
		return "", time.Time{}, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(AdminSubject, jwt.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.Wrap(&apperrors.Error{
			Kind:    apperrors.KindInternal,
			Code:    "TOKEN_ISSUE_FAILED",
			Message: "failed to issue token",
		}, err)
	}
	s.logger.Info("admin logged in")
	return token, expiresAt, nil
}
