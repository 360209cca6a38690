package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "vin_doc_", cfg.Material.DocumentPrefix)
	assert.Equal(t, "vin_mmat_", cfg.Material.HumanReadablePrefix)
	assert.Equal(t, "SKU", cfg.Material.SKUPrefix)
	assert.Equal(t, 4, cfg.Material.IDWidth)
	assert.Equal(t, 3, cfg.Material.SKUIDWidth)
	assert.Equal(t, []string{"material_name", "material_type", "supplier_name"}, cfg.Material.RequiredOnSubmit)
	assert.Equal(t, 3, cfg.Material.MaxIDAttempts)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestMaterialConfigValidate(t *testing.T) {
	cfg := DefaultMaterialConfig()
	assert.NoError(t, cfg.Validate())

	bad := DefaultMaterialConfig()
	bad.RequiredOnSubmit = []string{"material_name", "colour"}
	assert.Error(t, bad.Validate())

	bad = DefaultMaterialConfig()
	bad.HumanReadablePrefix = bad.DocumentPrefix
	assert.Error(t, bad.Validate())

	bad = DefaultMaterialConfig()
	bad.MaxIDAttempts = 0
	assert.Error(t, bad.Validate())
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("MATERIAL_TEST_KEY", "value")
	assert.Equal(t, "value", GetEnvOrDefault("MATERIAL_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("MATERIAL_TEST_MISSING", "fallback"))
}
