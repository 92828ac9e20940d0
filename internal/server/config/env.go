package config

import (
	"os"
	"strconv"
	"time"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return fallback
}

// parseEnv overlays values from environment variables. cmd/server loads a
// .env file beforehand, so these also cover dotenv deployments.
func parseEnv(config *Config) {
	config.EndpointAddrHTTP = getEnv("SERVER_ADDR", config.EndpointAddrHTTP)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getEnv("SECRET_KEY", config.SecretKey)

	if v := os.Getenv("ACCESS_TOKEN_VALIDITY_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			config.AccessTokenValidityDuration = time.Duration(mins) * time.Minute
		}
	}

	config.StorageBackend = getEnv("STORAGE_BACKEND", config.StorageBackend)
	config.S3RootUser = getEnv("S3_ACCESS_KEY", config.S3RootUser)
	config.S3RootPassword = getEnv("S3_SECRET_KEY", config.S3RootPassword)
	config.S3Bucket = getEnv("S3_BUCKET", config.S3Bucket)
	config.S3Region = getEnv("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = getEnv("S3_ENDPOINT", config.S3BaseEndpoint)
	config.S3UseSSL = getEnvBool("S3_USE_SSL", config.S3UseSSL)
	config.NATSURL = getEnv("NATS_URL", config.NATSURL)
	config.SeedDemoUsers = getEnvBool("SEED_DEMO_USERS", config.SeedDemoUsers)
}
