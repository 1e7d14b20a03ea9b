package housekeeper

import "time"

// HousekeeperEvent is the sealed interface for everything the intake
// channel can carry. The marker method keeps the set closed to this
// package's four implementations.
type HousekeeperEvent interface {
	isHousekeeperEvent()
}

// ReloadSettingsEvent signals that the shared Config snapshot has changed:
// purge schedules, ACME providers, and OTEL configuration may all differ.
type ReloadSettingsEvent struct{}

func (ReloadSettingsEvent) isHousekeeperEvent() {}

// AcmeRescheduleEvent feeds back the next renewal deadline for a provider,
// computed by the renewal task itself (it alone knows the certificate's
// real expiry).
type AcmeRescheduleEvent struct {
	ProviderID string
	RenewAt    time.Time
}

func (AcmeRescheduleEvent) isHousekeeperEvent() {}

// PurgeEvent requests an immediate, one-shot purge run; it is never queued.
type PurgeEvent struct {
	Purge PurgeType
}

func (PurgeEvent) isHousekeeperEvent() {}

// ExitEvent requests a clean scheduler shutdown.
type ExitEvent struct{}

func (ExitEvent) isHousekeeperEvent() {}

// PurgeType is the sealed interface naming what a purge run should target.
type PurgeType interface {
	isPurgeType()
}

// DataPurge purges expired rows from a data store.
type DataPurge struct {
	Store      DataStore
	StoreName  string // label used for lock keys and telemetry
	StoreIndex uint32
}

func (DataPurge) isPurgeType() {}

// BlobsPurge purges blobs no longer referenced by the data store.
type BlobsPurge struct {
	Store      DataStore
	BlobStore  BlobStore
	StoreName  string
	StoreIndex uint32
}

func (BlobsPurge) isPurgeType() {}

// LookupPurge purges an in-memory/lookup store, either entirely (Prefix
// nil) or restricted to a key prefix.
type LookupPurge struct {
	Store      LookupStore
	Prefix     []byte // nil ⇒ whole-store purge
	StoreName  string
	StoreIndex uint32
}

func (LookupPurge) isPurgeType() {}

// AccountPurge purges one account (AccountID non-nil) or sweeps every
// expired account (AccountID nil).
type AccountPurge struct {
	Service   AccountService
	AccountID *uint32
}

func (AccountPurge) isPurgeType() {}
