package auth

import (
	"testing"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "pos",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	userID := uuid.New()

	token, minted, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.RoleAdmin, JTI: "jti-1"})
	require.NoError(t, err)
	require.Equal(t, "jti-1", minted.ID)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, enums.RoleAdmin, claims.Role)
	require.Equal(t, cfg.Issuer, claims.Issuer)
	require.Equal(t, "jti-1", claims.ID)
	require.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	_, claims, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCashier})
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	require.NoError(t, err)
}

func TestMintAccessTokenValidatesInput(t *testing.T) {
	cfg := testJWTConfig()
	_, _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "owner"})
	require.Error(t, err)

	_, _, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{Role: enums.RoleAdmin})
	require.Error(t, err)

	cfg.Secret = ""
	_, _, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)

	other := cfg
	other.Secret = "other"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)

	other = cfg
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}
