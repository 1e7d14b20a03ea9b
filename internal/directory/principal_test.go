package directory

import "testing"

func strPtr(s string) *string { return &s }
func u64Ptr(n uint64) *uint64 { return &n }

func TestAddPermissionUpsertsByPermission(t *testing.T) {
	p := &Principal{}
	p.AddPermission(PermissionEmailSend, true)
	p.AddPermission(PermissionEmailSend, false)

	if len(p.Permissions) != 1 {
		t.Fatalf("expected 1 grant after upsert, got %d", len(p.Permissions))
	}
	if p.Permissions[0].Allow {
		t.Errorf("expected upsert to overwrite Allow to false")
	}
}

func TestAddPermissionsDoesNotDeduplicate(t *testing.T) {
	p := &Principal{}
	grants := []PermissionGrant{
		{Permission: PermissionEmailSend, Allow: true},
		{Permission: PermissionEmailSend, Allow: true},
	}
	p.AddPermissions(grants)

	if len(p.Permissions) != 2 {
		t.Errorf("expected AddPermissions to preserve duplicates, got %d entries", len(p.Permissions))
	}
}

func TestRemovePermissionRemovesMatchingEntry(t *testing.T) {
	p := &Principal{}
	p.AddPermission(PermissionEmailSend, true)
	p.AddPermission(PermissionEmailReceive, true)

	p.RemovePermission(PermissionEmailSend, true)

	if len(p.Permissions) != 1 {
		t.Fatalf("expected 1 grant remaining, got %d", len(p.Permissions))
	}
	if p.Permissions[0].Permission != PermissionEmailReceive {
		t.Errorf("expected remaining grant to be EmailReceive, got %v", p.Permissions[0].Permission)
	}
}

func TestRemovePermissionNoMatchIsNoOp(t *testing.T) {
	p := &Principal{}
	p.AddPermission(PermissionEmailSend, true)

	p.RemovePermission(PermissionEmailSend, false)

	if len(p.Permissions) != 1 {
		t.Errorf("expected no removal when allow does not match, got %d entries", len(p.Permissions))
	}
}

func TestRemovePermissionsRetainsOppositeAllow(t *testing.T) {
	p := &Principal{}
	p.AddPermissions([]PermissionGrant{
		{Permission: PermissionEmailSend, Allow: true},
		{Permission: PermissionEmailReceive, Allow: false},
		{Permission: PermissionManageDomains, Allow: true},
	})

	p.RemovePermissions(true)

	if len(p.Permissions) != 1 {
		t.Fatalf("expected 1 grant remaining, got %d", len(p.Permissions))
	}
	if p.Permissions[0].Permission != PermissionEmailReceive {
		t.Errorf("expected surviving grant to be EmailReceive, got %v", p.Permissions[0].Permission)
	}
}

func TestUpdateExternalMemberOfAlwaysAppends(t *testing.T) {
	p := &Principal{MemberOf: []uint32{1}}
	external := &Principal{MemberOf: []uint32{2, 3}}

	updates := p.UpdateExternal(external)

	if len(p.MemberOf) != 3 {
		t.Fatalf("expected MemberOf to grow to 3 entries, got %v", p.MemberOf)
	}
	if !containsUpdate(updates, "memberOf") {
		t.Errorf("expected memberOf update to be reported, got %v", updates)
	}
}

func TestUpdateExternalRolesOnlyWhenLocalEmpty(t *testing.T) {
	p := &Principal{Roles: []uint32{9}}
	external := &Principal{Roles: []uint32{1, 2}}

	updates := p.UpdateExternal(external)

	if len(p.Roles) != 1 || p.Roles[0] != 9 {
		t.Errorf("expected local roles to be preserved, got %v", p.Roles)
	}
	if containsUpdate(updates, "roles") {
		t.Errorf("did not expect a roles update when local roles are non-empty")
	}
}

func TestUpdateExternalRolesAdoptedWhenLocalEmpty(t *testing.T) {
	p := &Principal{}
	external := &Principal{Roles: []uint32{1, 2}}

	updates := p.UpdateExternal(external)

	if len(p.Roles) != 2 {
		t.Errorf("expected roles to be adopted from external, got %v", p.Roles)
	}
	if !containsUpdate(updates, "roles") {
		t.Errorf("expected roles update to be reported, got %v", updates)
	}
}

func TestUpdateExternalOverwritesChangedScalarFields(t *testing.T) {
	p := &Principal{Description: strPtr("old"), Quota: u64Ptr(10)}
	external := &Principal{Description: strPtr("new"), Quota: u64Ptr(20)}

	updates := p.UpdateExternal(external)

	if *p.Description != "new" {
		t.Errorf("expected description to be overwritten, got %q", *p.Description)
	}
	if *p.Quota != 20 {
		t.Errorf("expected quota to be overwritten, got %d", *p.Quota)
	}
	if !containsUpdate(updates, "description") || !containsUpdate(updates, "quota") {
		t.Errorf("expected description and quota updates, got %v", updates)
	}
}

func TestUpdateExternalLeavesUnchangedFieldsAlone(t *testing.T) {
	p := &Principal{Description: strPtr("same")}
	external := &Principal{Description: strPtr("same")}

	updates := p.UpdateExternal(external)

	if containsUpdate(updates, "description") {
		t.Errorf("did not expect a description update when values are identical, got %v", updates)
	}
}

func containsUpdate(updates []PrincipalUpdate, field string) bool {
	for _, u := range updates {
		if u.Field == field {
			return true
		}
	}
	return false
}
