package config

import (
	"flag"
	"os"
	"time"

	"github.com/valetdrive/valetdrive/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-o string   storage backend ("s3" or "minio")
//	-u string   object-store access key
//	-p string   object-store secret key
//	-b string   bucket name
//	-g string   region
//	-e string   base endpoint (e.g., "http://127.0.0.1:9000/")
//	-n string   NATS URL ("" disables event publishing)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-o", "-u", "-p", "-b", "-g", "-e", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	fs.StringVar(&config.StorageBackend, "o", config.StorageBackend, "storage backend (s3 or minio)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "object-store access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "object-store secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "bucket name")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "object-store base endpoint")
	fs.StringVar(&config.NATSURL, "n", config.NATSURL, "NATS URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
}
