package housekeeper

import "testing"

func TestLockKeyForLockedPurges(t *testing.T) {
	tests := []struct {
		name string
		p    PurgeType
	}{
		{"data purge is locked", DataPurge{StoreName: "mail", StoreIndex: 1}},
		{"blobs purge is locked", BlobsPurge{StoreName: "mail", StoreIndex: 1}},
		{"whole-store lookup purge is locked", LookupPurge{StoreName: "cache", StoreIndex: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, key := lockKeyFor(tt.p)
			if key == nil {
				t.Error("expected a non-nil lock key")
			}
		})
	}
}

func TestLockKeyForUnlockedPurges(t *testing.T) {
	id := uint32(5)
	tests := []struct {
		name string
		p    PurgeType
	}{
		{"prefix-scoped lookup purge is unlocked", LookupPurge{StoreName: "cache", Prefix: []byte("user:")}},
		{"single account purge is unlocked", AccountPurge{AccountID: &id}},
		{"account sweep is unlocked", AccountPurge{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, key := lockKeyFor(tt.p)
			if key != nil {
				t.Error("expected a nil lock key")
			}
		})
	}
}

func TestLockKeyDistinguishesStoreIndex(t *testing.T) {
	_, k1 := lockKeyFor(DataPurge{StoreName: "mail", StoreIndex: 1})
	_, k2 := lockKeyFor(DataPurge{StoreName: "mail", StoreIndex: 2})
	if *k1 == *k2 {
		t.Error("expected distinct store indices to produce distinct lock keys")
	}
}

func TestLockKeyDistinguishesDiscriminator(t *testing.T) {
	_, data := lockKeyFor(DataPurge{StoreName: "mail", StoreIndex: 1})
	_, blobs := lockKeyFor(BlobsPurge{StoreName: "mail", StoreIndex: 1})
	if *data == *blobs {
		t.Error("expected data and blobs purges of the same store to produce distinct lock keys")
	}
}
