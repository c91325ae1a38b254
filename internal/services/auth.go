package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/conceptdb/internal/pkg/ctxutil"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

// TokenService issues and verifies the HS256 bearer tokens that guard
// mutating endpoints.
type TokenService interface {
	Enabled() bool
	Issue(subject string, ttl time.Duration) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type OperatorClaims struct {
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	log    *logger.Logger
}

// NewTokenService returns a token service. An empty secret disables auth.
func NewTokenService(baseLog *logger.Logger, secret string) TokenService {
	return &tokenService{
		secret: []byte(strings.TrimSpace(secret)),
		log:    baseLog.With("service", "TokenService"),
	}
}

func (s *tokenService) Enabled() bool { return len(s.secret) > 0 }

func (s *tokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("auth disabled: no jwt secret configured")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("missing subject")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *tokenService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*OperatorClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ctx, fmt.Errorf("token has no subject")
	}
	return ctxutil.WithCallerData(ctx, &ctxutil.CallerData{Subject: claims.Subject}), nil
}
