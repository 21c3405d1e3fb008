package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken は署名不一致・構造不正など、期限切れ以外の検証失敗を表す。
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken は有効期限を過ぎたトークンを表す。
	ErrExpiredToken = errors.New("auth: token expired")
)

// DefaultTokenTTL はトークンの既定の有効期間（7日）。
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService はHS256署名のセッショントークンを発行・検証する。
// クレームはsub, iat, expのみで、ロールは含めない（ロールは毎リクエストDBから再取得する）。
// サーバー側に状態を持たないため、複数goroutineから安全に利用できる。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService はTokenServiceを生成する。
// secretが空の場合はエラーを返す。ttlが0以下の場合はDefaultTokenTTLを使用する。
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue は指定ユーザーIDをsubjectとするトークンを発行する。
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: subject is required")
	}

	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、subjectのユーザーIDを返す。
// 期限切れはErrExpiredToken、それ以外の欠陥はすべてErrInvalidTokenとなる。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
