package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/bundlehub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_CreateAndVerify(t *testing.T) {
	tk := NewAuthToken([]byte("secret"))

	s, err := tk.CreateToken(&models.Admin{ID: 7, Email: "admin@x.com"})
	require.NoError(t, err)

	payload, err := tk.VerifyToken(s)
	require.NoError(t, err)
	assert.Equal(t, &models.TokenPayload{AdminID: 7, Email: "admin@x.com", Role: models.RoleAdmin}, payload)
	assert.True(t, payload.IsAdmin())
}

func TestToken_VerifyRejectsOtherKey(t *testing.T) {
	s, err := NewAuthToken([]byte("secret")).CreateToken(&models.Admin{ID: 1})
	require.NoError(t, err)

	_, err = NewAuthToken([]byte("other")).VerifyToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_VerifyRejectsExpired(t *testing.T) {
	tk := NewAuthToken([]byte("secret"))
	tk.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

	s, err := tk.CreateToken(&models.Admin{ID: 1})
	require.NoError(t, err)

	_, err = tk.VerifyToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_VerifyRejectsNoneAlg(t *testing.T) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{Role: models.RoleAdmin}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthToken([]byte("secret")).VerifyToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
