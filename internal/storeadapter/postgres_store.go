// Package storeadapter provides concrete implementations of the
// housekeeper's storage contracts (internal/housekeeper/contracts.go) over
// a PostgreSQL pool and Redis, so the housekeeper's purge/lock operations
// run against real infrastructure instead of stubs.
package storeadapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkmail/keepd/internal/housekeeper"
)

// PostgresDataStore purges rows past their expiry column from one
// configured data store (index identifies which table/schedule owns it).
type PostgresDataStore struct {
	Pool  *pgxpool.Pool
	Index uint32
	Name  string
	Table string // table name, e.g. "store_0_data"
}

var _ housekeeper.DataStore = (*PostgresDataStore)(nil)

// PurgeStore deletes every row in Table whose expires_at has passed.
func (s *PostgresDataStore) PurgeStore(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= now()`, s.Table)
	if _, err := s.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("purging data store %s: %w", s.Name, err)
	}
	return nil
}

// PurgeBlobs deletes blob references from blobs that are no longer
// pointed to by any row in Table. blobs must be a *PostgresBlobStore; the
// housekeeper.BlobStore interface it satisfies carries no methods of its
// own (see housekeeper.BlobStore), so the concrete type is recovered here.
func (s *PostgresDataStore) PurgeBlobs(ctx context.Context, blobs housekeeper.BlobStore) error {
	bs, ok := blobs.(*PostgresBlobStore)
	if !ok {
		return fmt.Errorf("purging blobs for %s: unsupported blob store type %T", s.Name, blobs)
	}
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE hash NOT IN (SELECT blob_hash FROM %s WHERE blob_hash IS NOT NULL)`,
		bs.Table, s.Table,
	)
	if _, err := s.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("purging blobs for %s: %w", s.Name, err)
	}
	return nil
}

// PostgresBlobStore names the blob-reference table consulted alongside a
// PostgresDataStore during a Blobs purge. It carries no housekeeper-visible
// operations of its own (see housekeeper.BlobStore); PurgeBlobs is driven
// entirely from the DataStore side.
type PostgresBlobStore struct {
	Table string
}

var _ housekeeper.BlobStore = (*PostgresBlobStore)(nil)
