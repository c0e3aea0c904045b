package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodgekit/lodgekit/pkg/config"
)

type testConfig struct {
	Host string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	Port int    `env:"TEST_CFG_PORT" envDefault:"5432"`
}

type requiredConfig struct {
	Secret string `env:"TEST_CFG_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	config.Reset()

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
}

func TestLoad_FromEnv(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_CFG_HOST", "db.internal")
	t.Setenv("TEST_CFG_PORT", "6543")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
}

func TestLoad_Cached(t *testing.T) {
	config.Reset()
	t.Setenv("TEST_CFG_HOST", "first")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	require.Equal(t, "first", cfg.Host)

	// Environment changes after the first load are not observed.
	t.Setenv("TEST_CFG_HOST", "second")
	var again testConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "first", again.Host)
}

func TestLoad_RequiredMissing(t *testing.T) {
	config.Reset()

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	config.Reset()

	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}
