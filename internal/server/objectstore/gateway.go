// Package objectstore talks to the blob store holding file content. The
// server never proxies bytes itself: it issues short-lived presigned URLs
// and clients transfer data directly against the store.
package objectstore

import (
	"context"
	"time"
)

// Gateway abstracts the object store. Implementations exist for the AWS
// S3 API and for MinIO's native client.
type Gateway interface {
	// PresignUpload returns a URL authorizing a single PUT of the given
	// object key.
	PresignUpload(ctx context.Context, key string, contentType string, expires time.Duration) (string, error)

	// PresignDownload returns a URL authorizing a GET of the object. The
	// response is served as an attachment named fileName.
	PresignDownload(ctx context.Context, key string, fileName string, expires time.Duration) (string, error)

	// Exists reports whether the object is present in the bucket.
	Exists(ctx context.Context, key string) (bool, error)

	// ListByPrefix returns the keys of all objects under the prefix.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
