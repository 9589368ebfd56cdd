package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken(Identity{ID: "u1", Name: "Ann", Email: "a@b.c", Role: "user"}, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Identity.ID)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "a@b.c", claims.Email)
	require.Equal(t, "user", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(Identity{ID: "u1"}, []byte("one"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("two"))
	require.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(Identity{ID: "u1"}, []byte("s"), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("s"))
	require.ErrorIs(t, err, jwtlib.ErrTokenExpired)
}

func TestParseTokenRejectsOtherAlgorithm(t *testing.T) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, Claims{Identity: Identity{ID: "u1"}})
	signed, err := token.SignedString([]byte("s"))
	require.NoError(t, err)
	_, err = ParseToken(signed, []byte("s"))
	require.Error(t, err)
}
