package housekeeper

import (
	"context"
	"encoding/binary"
	"time"
)

// KVLockHousekeeper is the fixed namespace every housekeeper lock is taken
// under.
const KVLockHousekeeper = "housekeeper"

// DefaultLockTTL is the lock lifetime used for every Data/Blobs/whole-store
// Lookup purge: long enough to outlast a normal purge run, short enough
// that a crashed holder is automatically dispossessed.
const DefaultLockTTL = 3600 * time.Second

// LockService is the coarse mutual-exclusion contract used to keep two
// cluster replicas from running the same purge concurrently.
type LockService interface {
	TryLock(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error)
	RemoveLock(ctx context.Context, namespace, key string) error
}

// lockDiscriminator distinguishes the three lockable purge kinds within the
// lock key byte string.
type lockDiscriminator byte

const (
	lockData lockDiscriminator = 0
	lockBlob lockDiscriminator = 1
	lockMem  lockDiscriminator = 2
)

// lockKey builds the lock key for a store-indexed purge: a one-byte
// discriminator followed by the big-endian 4-byte store index.
func lockKey(disc lockDiscriminator, storeIndex uint32) string {
	buf := make([]byte, 5)
	buf[0] = byte(disc)
	binary.BigEndian.PutUint32(buf[1:], storeIndex)
	return string(buf)
}

// lockKeyFor derives the (label, optional lock key) pair for a PurgeType.
// A nil second return means the purge runs unlocked: whole-store Lookup
// purges are locked, but prefix-scoped Lookup purges and Account purges
// are expected to self-serialize at the backend and skip the lock
// entirely.
func lockKeyFor(p PurgeType) (label string, key *string) {
	switch v := p.(type) {
	case DataPurge:
		k := lockKey(lockData, v.StoreIndex)
		return "data:" + v.StoreName, &k
	case BlobsPurge:
		k := lockKey(lockBlob, v.StoreIndex)
		return "blobs:" + v.StoreName, &k
	case LookupPurge:
		if v.Prefix != nil {
			return "lookup_prefix:" + v.StoreName, nil
		}
		k := lockKey(lockMem, v.StoreIndex)
		return "lookup:" + v.StoreName, &k
	case AccountPurge:
		return "account", nil
	default:
		return "unknown", nil
	}
}
