package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendS3, cfg.StorageBackend)
	assert.Equal(t, 15*time.Minute, cfg.UploadURLTTL)
	assert.Equal(t, 10*time.Minute, cfg.DownloadURLTTL)
	assert.Equal(t, 60*time.Minute, cfg.PublicDownloadURLTTL)
	assert.Equal(t, 15*time.Second, cfg.ObjectStoreTimeout)
	assert.Empty(t, cfg.NATSURL)
}

func TestParseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("STORAGE_BACKEND", "minio")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("ACCESS_TOKEN_VALIDITY_MINUTES", "30")

	parseEnv(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendMinio, cfg.StorageBackend)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
}

func TestParseEnv_KeepsDefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	parseEnv(cfg)

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendS3, cfg.StorageBackend)
}
