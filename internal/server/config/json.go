package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/valetdrive/valetdrive/internal/flagx"
)

// jsonConfig is an intermediate DTO for reading JSON configuration files.
// Durations are expressed in minutes, matching the flag forms.
type jsonConfig struct {
	EndpointAddrHTTP        string `json:"endpoint_addr_http"`
	DatabaseDSN             string `json:"database_dsn"`
	SecretKey               string `json:"secret_key"`
	AccessTokenValidityMins int    `json:"access_token_validity_minutes"`
	StorageBackend          string `json:"storage_backend"`
	S3RootUser              string `json:"s3_root_user"`
	S3RootPassword          string `json:"s3_root_password"`
	S3Bucket                string `json:"s3_bucket"`
	S3Region                string `json:"s3_region"`
	S3BaseEndpoint          string `json:"s3_base_endpoint"`
	S3UseSSL                bool   `json:"s3_use_ssl"`
	NATSURL                 string `json:"nats_url"`
	SeedDemoUsers           bool   `json:"seed_demo_users"`
}

// parseJSON overlays values from the JSON file named by the -c/-config
// flags, when present. Unreadable or invalid files panic: a config file
// that was asked for but cannot be used is a startup error.
func parseJSON(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &jsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityMins > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityMins) * time.Minute
	}
	if c.StorageBackend != "" {
		config.StorageBackend = c.StorageBackend
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.S3UseSSL {
		config.S3UseSSL = true
	}
	if c.NATSURL != "" {
		config.NATSURL = c.NATSURL
	}
	if c.SeedDemoUsers {
		config.SeedDemoUsers = true
	}
}
