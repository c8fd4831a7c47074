package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/texttalk/internal/models"
)

type supabaseClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`         // usually "authenticated" / "anon"
	AppMetadata  map[string]any `json:"app_metadata"` // {"role":"admin"} for admins
	UserMetadata map[string]any `json:"user_metadata"`
}

// ParseAccessToken reads the user and expiry out of a Supabase access token.
// With a secret the HS256 signature and expiry are verified; without one the
// claims are read unverified, which is only fit for a token this process
// received from the provider itself.
func ParseAccessToken(raw, secret string) (*models.User, time.Time, error) {
	claims := &supabaseClaims{}

	if secret != "" {
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, time.Time{}, err
		}
		if !tok.Valid {
			return nil, time.Time{}, errors.New("invalid token")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			return nil, time.Time{}, err
		}
	}

	if claims.Subject == "" {
		return nil, time.Time{}, errors.New("missing subject")
	}

	u := &models.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  appRole(claims.AppMetadata),
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return u, exp, nil
}

func appRole(md map[string]any) models.UserRole {
	if md != nil {
		if v, ok := md["role"].(string); ok && v != "" {
			return models.UserRole(v)
		}
	}
	return models.RoleUser
}
