// Package store persists finished mosaics so the server can hand out their
// artifacts after the request that produced them.
package store

import (
	"context"
	"time"

	"github.com/matzehuels/textmosaic/pkg/errors"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "mosaic not found")

// Record is one stored mosaic.
type Record struct {
	ID        string            `json:"id" bson:"_id"`
	Image     string            `json:"image" bson:"image"`
	Status    string            `json:"status" bson:"status"`
	Placed    int               `json:"placed" bson:"placed"`
	Remaining int               `json:"remaining" bson:"remaining"`
	Width     int               `json:"width" bson:"width"`
	Height    int               `json:"height" bson:"height"`
	Options   pipeline.Options  `json:"options" bson:"options"`
	Artifacts map[string][]byte `json:"-" bson:"artifacts"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

// NewRecord captures a pipeline result.
func NewRecord(res *pipeline.Result, image string, opts pipeline.Options) Record {
	return Record{
		ID:        res.ID.String(),
		Image:     image,
		Status:    res.Status.String(),
		Placed:    res.Placed,
		Remaining: res.Remaining,
		Width:     res.Stats.Width,
		Height:    res.Stats.Height,
		Options:   opts,
		Artifacts: res.Artifacts,
		CreatedAt: time.Now().UTC(),
	}
}

// Store saves and loads records.
type Store interface {
	// Save inserts r or replaces the record with the same ID.
	Save(ctx context.Context, r Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// List returns up to limit records, newest first. Artifacts are omitted.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}
