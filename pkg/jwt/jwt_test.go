package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/erp-offline/pkg/jwt"
)

const (
	testSecret    = "test-secret-key-for-unit-tests"
	testCompanyID = "00000000-0000-0000-0000-000000000002"
	testIssuer    = "erp-offline-test"
)

func TestGenerateAndParse_Access(t *testing.T) {
	issued, err := pkgjwt.Generate(testSecret, testCompanyID, pkgjwt.TypeAccess, testIssuer, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.ID)

	claims, err := pkgjwt.Parse(testSecret, issued.Token, pkgjwt.TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, testCompanyID, claims.CompanyID)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, testIssuer, claims.Issuer)
}

func TestParse_TipoEquivocado(t *testing.T) {
	issued, err := pkgjwt.Generate(testSecret, testCompanyID, pkgjwt.TypeRefresh, testIssuer, time.Hour)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testSecret, issued.Token, pkgjwt.TypeAccess)
	assert.ErrorIs(t, err, pkgjwt.ErrWrongType, "un refresh token no sirve como access token")
}

func TestParse_TokenExpirado(t *testing.T) {
	issued, err := pkgjwt.Generate(testSecret, testCompanyID, pkgjwt.TypeAccess, testIssuer, -time.Minute)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(testSecret, issued.Token, pkgjwt.TypeAccess)
	assert.Error(t, err, "token expirado debe retornar error")
}

func TestParse_SecretIncorrecto(t *testing.T) {
	issued, err := pkgjwt.Generate(testSecret, testCompanyID, pkgjwt.TypeAccess, testIssuer, time.Hour)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret-completamente-distinto", issued.Token, pkgjwt.TypeAccess)
	assert.Error(t, err, "secret incorrecto debe invalidar el token")
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", testCompanyID, pkgjwt.TypeAccess, testIssuer, time.Hour)
	assert.Error(t, err)
}
