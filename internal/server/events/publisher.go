// Package events publishes file lifecycle notifications so other services
// (indexers, virus scanners, audit trails) can react without polling.
package events

import (
	"context"
	"time"
)

// Event types emitted by the server.
const (
	TypeUploadRequested = "upload.requested"
	TypeUploadConfirmed = "upload.confirmed"
	TypeFileDeleted     = "file.deleted"
	TypeLinkCreated     = "link.created"
	TypeLinkRevoked     = "link.revoked"
)

// Event describes a single lifecycle transition of a file record.
type Event struct {
	Type       string    `json:"type"`
	OwnerID    string    `json:"owner_id"`
	FileID     string    `json:"file_id"`
	ObjectKey  string    `json:"object_key,omitempty"`
	Size       int64     `json:"size,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Delivery is best-effort: callers log publish
// failures but never fail the originating request because of them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NoopPublisher discards all events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close()                                         {}
