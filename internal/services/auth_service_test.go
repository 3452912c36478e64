package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/crashrace-backend/internal/apperrors"
	"github.com/ArowuTest/crashrace-backend/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	tokens := jwt.NewTokenService("test-secret", time.Hour)
	svc := NewAuthService(string(hash), tokens, zap.NewNop())
	ctx := context.Background()

	token, expiresAt, err := svc.AdminLogin(ctx, "s3cret")
	if err != nil {
		t.Fatalf("AdminLogin: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt %v is not in the future", expiresAt)
	}
	claims, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != AdminSubject || claims.Role != jwt.RoleAdmin {
		t.Errorf("claims = %+v", claims)
	}

	if _, _, err := svc.AdminLogin(ctx, "wrong"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want INVALID_CREDENTIALS", err)
	}
	if _, _, err := svc.AdminLogin(ctx, ""); apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("empty password err = %v, want validation", err)
	}
}

func TestAdminLogin_Disabled(t *testing.T) {
	svc := NewAuthService("", jwt.NewTokenService("test-secret", time.Hour), zap.NewNop())
	_, _, err := svc.AdminLogin(context.Background(), "anything")
	if apperrors.KindOf(err) != apperrors.KindUnavailable {
		t.Fatalf("err = %v, want unavailable", err)
	}
}
