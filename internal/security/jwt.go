package security

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"testyourself-core/internal/domain"
)

const (
	// RoleAdmin is the role claim value that grants admin access.
	RoleAdmin = domain.RoleAdmin
	// RoleService is the role claim value of the result-reporting service.
	RoleService = domain.RoleService
)

// JWTAuthorizer validates HS256 bearer tokens and checks the role claim.
type JWTAuthorizer struct {
	auth *jwtauth.JWTAuth
}

func NewJWTAuthorizer(secret []byte) *JWTAuthorizer {
	return &JWTAuthorizer{auth: jwtauth.New("HS256", secret, nil)}
}

// GenerateToken signs a token for userID with role, valid for ttl.
func (a *JWTAuthorizer) GenerateToken(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	_, tokenString, err := a.auth.Encode(claims)
	return tokenString, err
}

// IsAdmin reports whether token is valid and carries the admin role.
func (a *JWTAuthorizer) IsAdmin(ctx context.Context, token string) (bool, error) {
	return a.HasRole(ctx, token, RoleAdmin)
}

// HasRole reports whether token is valid and its role claim is one of roles.
func (a *JWTAuthorizer) HasRole(ctx context.Context, token string, roles ...string) (bool, error) {
	if token == "" {
		return false, errors.New("token not found")
	}
	tok, err := jwtauth.VerifyToken(a.auth, token)
	if err != nil {
		return false, err
	}
	claims, err := tok.AsMap(ctx)
	if err != nil {
		return false, err
	}
	role, _ := claims["role"].(string)
	for _, r := range roles {
		if role == r {
			return true, nil
		}
	}
	return false, nil
}
