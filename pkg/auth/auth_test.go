package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bookhaven/lending-service/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := auth.NewToken("83575e12-7ce0-48ee-9931-51919ff3c9ee", "admin", auth.RoleAdmin, "admin@biblioteca.local", time.Hour)
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	claims, err := auth.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "83575e12-7ce0-48ee-9931-51919ff3c9ee", claims.UserUid)
	require.Equal(t, "admin", claims.Profile.Username)
	require.Equal(t, auth.RoleAdmin, claims.Profile.Role)
	require.Equal(t, "admin@biblioteca.local", claims.Email)
}

func TestParseToken_Invalid(t *testing.T) {
	_, err := auth.ParseToken("not.a.token")
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := auth.NewToken("83575e12-7ce0-48ee-9931-51919ff3c9ee", "admin", auth.RoleAdmin, "", -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	require.Error(t, err)
}

func TestSessionIsAdmin(t *testing.T) {
	require.True(t, auth.Session{Role: auth.RoleAdmin}.IsAdmin())
	require.False(t, auth.Session{Role: auth.RoleStudent}.IsAdmin())
}
