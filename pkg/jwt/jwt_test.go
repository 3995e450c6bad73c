package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := Generate("s3cret", "u1", "B1", RoleSupervisor, "pos-ledger", time.Minute)
	require.NoError(t, err)

	claims, err := Parse("s3cret", "pos-ledger", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "B1", claims.BranchID)
	assert.Equal(t, RoleSupervisor, claims.Role)
}

func TestParse_Rechazos(t *testing.T) {
	valid, err := Generate("s3cret", "u1", "B1", RoleAdmin, "pos-ledger", time.Minute)
	require.NoError(t, err)
	expired, err := Generate("s3cret", "u1", "B1", RoleAdmin, "pos-ledger", -time.Minute)
	require.NoError(t, err)
	noUser, err := Generate("s3cret", "", "B1", RoleAdmin, "pos-ledger", time.Minute)
	require.NoError(t, err)

	_, err = Parse("otro", "pos-ledger", valid)
	assert.Error(t, err, "firma incorrecta")
	_, err = Parse("s3cret", "otro-emisor", valid)
	assert.Error(t, err, "emisor distinto")
	_, err = Parse("s3cret", "pos-ledger", expired)
	assert.Error(t, err, "expirado")
	_, err = Parse("s3cret", "pos-ledger", noUser)
	assert.Error(t, err, "sin user_id")
	_, err = Parse("", "pos-ledger", valid)
	assert.Error(t, err, "secret vacío")
}
