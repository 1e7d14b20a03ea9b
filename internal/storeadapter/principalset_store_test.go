package storeadapter

import (
	"testing"

	"github.com/larkmail/keepd/internal/directory"
)

func TestToPrincipalSetAndBackRoundTrips(t *testing.T) {
	desc := "engineering mailing list"
	quota := uint64(1024)
	tenant := uint32(7)
	picture := "https://example.com/pic.png"

	p := &directory.Principal{
		ID:          42,
		Type:        directory.Group,
		Name:        "eng-all",
		Description: &desc,
		Secrets:     []string{"s1"},
		Emails:      []string{"eng-all@example.com"},
		Quota:       &quota,
		Tenant:      &tenant,
		MemberOf:    []uint32{1, 2},
		Roles:       []uint32{3},
		Urls:        []string{"https://example.com"},
		Lists:       []uint32{9},
		Picture:     &picture,
	}

	set := toPrincipalSet(p)
	if set.ID != p.ID || set.Type != p.Type {
		t.Fatalf("expected id/type to be preserved, got %d/%v", set.ID, set.Type)
	}

	back := fromPrincipalSet(p.ID, set)
	if back.Name != p.Name {
		t.Errorf("expected name %q, got %q", p.Name, back.Name)
	}
	if back.Description == nil || *back.Description != desc {
		t.Errorf("expected description %q, got %v", desc, back.Description)
	}
	if back.Quota == nil || *back.Quota != quota {
		t.Errorf("expected quota %d, got %v", quota, back.Quota)
	}
	if back.Tenant == nil || *back.Tenant != tenant {
		t.Errorf("expected tenant %d, got %v", tenant, back.Tenant)
	}
	if len(back.MemberOf) != 2 || back.MemberOf[0] != 1 || back.MemberOf[1] != 2 {
		t.Errorf("expected memberOf [1 2], got %v", back.MemberOf)
	}
	if len(back.Lists) != 1 || back.Lists[0] != 9 {
		t.Errorf("expected lists [9], got %v", back.Lists)
	}
}

func TestFromPrincipalSetLeavesAbsentFieldsZero(t *testing.T) {
	set := directory.NewPrincipalSet(1, directory.Individual)
	set.Fields[directory.FieldName] = directory.NewStringValue("solo")

	p := fromPrincipalSet(1, set)
	if p.Name != "solo" {
		t.Errorf("expected name %q, got %q", "solo", p.Name)
	}
	if p.Description != nil {
		t.Error("expected description to stay nil when absent from the set")
	}
	if p.Quota != nil {
		t.Error("expected quota to stay nil when absent from the set")
	}
	if len(p.MemberOf) != 0 {
		t.Error("expected memberOf to stay empty when absent from the set")
	}
}

func TestUintListConversions(t *testing.T) {
	in32 := []uint32{1, 2, 3}
	out64 := toUint64List(in32)
	if len(out64) != 3 || out64[1] != 2 {
		t.Fatalf("unexpected conversion result: %v", out64)
	}

	back32 := toUint32List(out64)
	if len(back32) != 3 || back32[2] != 3 {
		t.Fatalf("unexpected round-trip result: %v", back32)
	}
}
