// Package storage archives raw partner uploads so failed imports can be
// inspected and replayed. Implementations can be local filesystem, S3, etc.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Metadata contains upload metadata for archived files
type Metadata struct {
	ContentType  string            `json:"contentType,omitempty"`
	OriginalName string            `json:"originalName,omitempty"`
	PartnerID    int64             `json:"partnerId,omitempty"`
	RecordType   string            `json:"recordType,omitempty"`
	RunID        string            `json:"runId,omitempty"`
	UploadedAt   time.Time         `json:"uploadedAt,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// FileInfo contains information about an archived file
type FileInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"contentType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Storage defines the interface for archive operations
type Storage interface {
	// Put stores content at the given key with optional metadata
	Put(ctx context.Context, key string, content []byte, metadata *Metadata) error

	// Get retrieves content from the given key
	Get(ctx context.Context, key string) ([]byte, error)

	// GetInfo retrieves file information without content
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if a file exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a file at the given key
	Delete(ctx context.Context, key string) error

	// List returns all keys matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// BuildUploadKey builds the archive key for a raw upload
func BuildUploadKey(partnerID int64, runID string) string {
	return fmt.Sprintf("uploads/%d/%s", partnerID, runID)
}
