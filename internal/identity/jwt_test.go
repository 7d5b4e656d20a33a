package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siterisk/pkg/apperr"
)

var jwtService = NewJWTService("test-signing-key")

var testUser = User{
	Name:  "Jordan Blake",
	Email: "jordan.blake@example.org",
	Roles: []string{RoleStudyDirector},
}

func Test_GenerateAccessToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(testUser, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	user, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUser.Name, user.Name)
	assert.Equal(t, testUser.Email, user.Email)
	assert.Equal(t, testUser.Roles, user.Roles)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(testUser, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
	assert.Equal(t, "token has expired", apperr.MessageOf(err))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key")
	token, err := other.GenerateAccessToken(testUser, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthorized))
}

func Test_Role_Fallback(t *testing.T) {
	u := User{Name: "No Role", Email: "nr@example.org"}
	assert.Equal(t, RolePrincipalInvestigator, u.Role())
	assert.False(t, u.IsStudyDirector())

	u.Roles = []string{"Auditor", RoleStudyDirector}
	assert.Equal(t, RoleStudyDirector, u.Role())
	assert.True(t, u.IsStudyDirector())
}
