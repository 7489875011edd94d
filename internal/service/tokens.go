package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================
// JWT access tokens
// ============================================================

// AccessClaims are the custom claims carried by access tokens.
type AccessClaims struct {
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Type        string   `json:"type"`
	jwt.RegisteredClaims
}

// JWTTokens issues and validates HS256 access tokens.
type JWTTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var _ port.TokenService = (*JWTTokens)(nil)

func NewJWTTokens(secret, issuer string, ttl time.Duration) *JWTTokens {
	return &JWTTokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (t *JWTTokens) TTL() time.Duration { return t.ttl }

func (t *JWTTokens) Issue(c port.TokenClaims) (string, error) {
	now := t.now()
	claims := AccessClaims{
		Email:       c.Email,
		Phone:       c.Phone,
		Roles:       c.Roles,
		Permissions: c.Permissions,
		Type:        "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    t.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (t *JWTTokens) Validate(tokenString string) (*port.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired token"}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token type"}
	}

	return &port.TokenClaims{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Phone:       claims.Phone,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}, nil
}
