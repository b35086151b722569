package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-offline/pkg/config"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cr3t")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, config.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 60*time.Second, cfg.Session.RefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.Session.RefreshLead)
	assert.Equal(t, 3*time.Second, cfg.Session.LogoutTimeout)
	assert.False(t, cfg.CompanyAPI.Remote())
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr())
}

func TestFromViper_EnterosComoTexto(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cr3t")
	v.Set("SESSION_REFRESH_INTERVAL_SECONDS", "15")
	v.Set("HTTP_PORT", "9090")
	v.Set("STORAGE_DRIVER", "BOLT")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Session.RefreshInterval)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, config.DriverBolt, cfg.Storage.Driver)
}

func TestFromViper_DriverDesconocido(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cr3t")
	v.Set("STORAGE_DRIVER", "indexeddb")
	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestFromViper_DirectorioLocalExigeSecreto(t *testing.T) {
	_, err := config.FromViper(viper.New())
	assert.Error(t, err, "sin COMPANY_API_URL se firma localmente y hace falta JWT_SECRET")

	v := viper.New()
	v.Set("COMPANY_API_URL", "https://api.example.com/")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.CompanyAPI.Remote())
	assert.Equal(t, "https://api.example.com", cfg.CompanyAPI.BaseURL)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "erp", Password: "p@ss:word", DBName: "erp", SSLMode: "disable"}
	assert.Equal(t, "postgres://erp:p%40ss%3Aword@db:5432/erp?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
