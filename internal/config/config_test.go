package config_test

import (
	"testing"
	"time"

	"feira/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, config.DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_StoreDrivers(t *testing.T) {
	base := config.Config{JWTSecret: "s", JWTTTL: time.Hour, RequestTimeout: time.Second}

	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"memory", func(c *config.Config) { c.StoreDriver = config.DriverMemory }, false},
		{"postgres without dsn", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }, true},
		{"postgres with dsn", func(c *config.Config) {
			c.StoreDriver = config.DriverPostgres
			c.DatabaseDSN = "host=localhost"
		}, false},
		{"firestore without project", func(c *config.Config) { c.StoreDriver = config.DriverFirestore }, true},
		{"unknown", func(c *config.Config) { c.StoreDriver = "mongo" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
