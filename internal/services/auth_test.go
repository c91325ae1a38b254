package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/conceptdb/internal/pkg/ctxutil"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(logger.Nop(), "s3cret")
	tok, err := svc.Issue("curator", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if cd := ctxutil.GetCallerData(ctx); cd == nil || cd.Subject != "curator" {
		t.Fatalf("caller data: %+v", cd)
	}

	other := NewTokenService(logger.Nop(), "different")
	if _, err := other.SetContextFromToken(context.Background(), tok); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestTokenRejectsExpiredAndDisabled(t *testing.T) {
	svc := NewTokenService(logger.Nop(), "s3cret")
	expired := OperatorClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "curator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := svc.SetContextFromToken(context.Background(), tok); err == nil {
		t.Fatalf("expected expiry error")
	}
	if _, err := svc.SetContextFromToken(context.Background(), "not-a-token"); err == nil {
		t.Fatalf("expected parse error")
	}

	disabled := NewTokenService(logger.Nop(), "  ")
	if disabled.Enabled() {
		t.Fatalf("blank secret must disable auth")
	}
	if _, err := disabled.Issue("curator", time.Minute); err == nil {
		t.Fatalf("expected error issuing without a secret")
	}
}
