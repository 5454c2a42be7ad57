package storage

import (
	"context"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// ArchiveResult identifies where an archived snapshot landed.
type ArchiveResult struct {
	Key      string
	Location string
	ETag     string
}

// SnapshotArchiver persists snapshots to cold storage before retention
// pruning removes them from the database.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snapshot *models.Snapshot) (*ArchiveResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// NopArchiver drops snapshots instead of archiving them. Used when no
// object storage is configured; pruning then deletes outright.
type NopArchiver struct{}

func (NopArchiver) Archive(ctx context.Context, snapshot *models.Snapshot) (*ArchiveResult, error) {
	return nil, nil
}

func (NopArchiver) Delete(ctx context.Context, key string) error { return nil }

func (NopArchiver) GetPublicURL(key string) string { return "" }
