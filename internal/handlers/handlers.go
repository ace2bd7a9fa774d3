// Package handlers implements the internal HTTP API: imports, CSV
// validation, import runs, and partner listing.
package handlers

import (
	"github.com/afflux/partner-service/internal/database"
	"github.com/afflux/partner-service/internal/pipeline"
	"github.com/afflux/partner-service/internal/storage"
)

// Handlers bundles the collaborators every endpoint needs
type Handlers struct {
	db    *database.DB
	store *database.Store
	pipe  *pipeline.Pipeline

	// archive keeps raw uploads for inspection and replay; nil disables it
	archive storage.Storage

	// importSem bounds concurrent async imports
	importSem      chan struct{}
	maxUploadBytes int64
}

// New creates the handler set
func New(db *database.DB, store *database.Store, pipe *pipeline.Pipeline, maxConcurrentImports int, maxUploadBytes int64) *Handlers {
	if maxConcurrentImports <= 0 {
		maxConcurrentImports = 10
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &Handlers{
		db:             db,
		store:          store,
		pipe:           pipe,
		importSem:      make(chan struct{}, maxConcurrentImports),
		maxUploadBytes: maxUploadBytes,
	}
}

// WithArchive enables raw upload archiving
func (h *Handlers) WithArchive(archive storage.Storage) *Handlers {
	h.archive = archive
	return h
}
