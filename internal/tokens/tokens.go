package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/safar/safar/backend/go-services/internal/models"
)

// IssueIDToken creates an HS256 ID token for the user, verifiable by oidc.HMACVerifier.
func IssueIDToken(secret, issuer string, u *models.User, ttl time.Duration) (string, error) {
	return IssueIDTokenAt(secret, issuer, u, ttl, time.Now())
}

// IssueIDTokenAt is IssueIDToken with an explicit issue time.
func IssueIDTokenAt(secret, issuer string, u *models.User, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":                u.ID,
		"email":              u.Email,
		"name":               u.FullName,
		"preferred_username": u.Username,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
	}
	if u.AvatarURL != "" {
		claims["picture"] = u.AvatarURL
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}
