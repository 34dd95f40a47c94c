package oidc

import (
	"context"
	"testing"
	"time"

	"github.com/safar/safar/backend/go-services/internal/models"
	"github.com/safar/safar/backend/go-services/internal/tokens"
	"github.com/stretchr/testify/require"
)

const testSecret = "hmac-secret-32-bytes-xxxxxxxxxxxx"

func TestHMACVerifier_Valid(t *testing.T) {
	u := &models.User{ID: "sub-1", Email: "a@b.c", FullName: "Alice"}
	raw, err := tokens.IssueIDToken(testSecret, "safar-local", u, time.Minute)
	require.NoError(t, err)

	v, err := NewHMACVerifier(testSecret, "safar-local")
	require.NoError(t, err)
	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "sub-1", claims.Sub)
	require.Equal(t, "a@b.c", claims.Email)
	require.Equal(t, "Alice", claims.Name)
}

func TestHMACVerifier_Rejects(t *testing.T) {
	u := &models.User{ID: "sub-1"}
	v, err := NewHMACVerifier(testSecret, "safar-local")
	require.NoError(t, err)
	ctx := context.Background()

	wrongSecret, err := tokens.IssueIDToken("some-other-secret", "safar-local", u, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, wrongSecret)
	require.Error(t, err)

	wrongIssuer, err := tokens.IssueIDToken(testSecret, "elsewhere", u, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, wrongIssuer)
	require.Error(t, err)

	expired, err := tokens.IssueIDTokenAt(testSecret, "safar-local", u, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = v.Verify(ctx, expired)
	require.Error(t, err)

	noSub, err := tokens.IssueIDToken(testSecret, "safar-local", &models.User{}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(ctx, noSub)
	require.Error(t, err)

	_, err = v.Verify(ctx, "not-a-jwt")
	require.Error(t, err)
}

func TestHMACVerifier_Clock(t *testing.T) {
	u := &models.User{ID: "sub-1"}
	issued := time.Now()
	raw, err := tokens.IssueIDTokenAt(testSecret, "", u, time.Minute, issued)
	require.NoError(t, err)

	v, err := NewHMACVerifier(testSecret, "")
	require.NoError(t, err)
	v.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
	_, err = v.Verify(context.Background(), raw)
	require.Error(t, err)
}

func TestNewHMACVerifier_EmptySecret(t *testing.T) {
	_, err := NewHMACVerifier("", "")
	require.Error(t, err)
}
