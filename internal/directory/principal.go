package directory

// Principal is a directory record: a user, group, role, domain, tenant,
// API key, or OAuth client. Unlike the source this was ported from, the
// polymorphic "one entry per discriminator" field list is represented as
// explicit optional fields — direct reads with no linear scan and no
// at-most-one-entry invariant to maintain by convention.
type Principal struct {
	ID          uint32
	Type        Type
	Name        string
	Description *string
	Secrets     []string
	Emails      []string
	Quota       *uint64
	Tenant      *uint32

	MemberOf       []uint32
	Roles          []uint32
	Permissions    []PermissionGrant
	Urls           []string
	Lists          []uint32
	Picture        *string
	PrincipalQuota []QuotaEntry
}

// AddPermission upserts grant by permission, overwriting any existing
// grant for the same permission.
func (p *Principal) AddPermission(permission Permission, allow bool) {
	for i := range p.Permissions {
		if p.Permissions[i].Permission == permission {
			p.Permissions[i].Allow = allow
			return
		}
	}
	p.Permissions = append(p.Permissions, PermissionGrant{Permission: permission, Allow: allow})
}

// AddPermissions appends every grant without deduplicating. Whether the
// caller intends duplicates here is unclear from the source this was
// ported from; this preserves that ambiguity rather than silently
// resolving it.
func (p *Principal) AddPermissions(grants []PermissionGrant) {
	p.Permissions = append(p.Permissions, grants...)
}

// RemovePermission removes the first entry matching both permission and
// allow, by swap-remove (order is not preserved).
func (p *Principal) RemovePermission(permission Permission, allow bool) {
	for i := range p.Permissions {
		if p.Permissions[i].Permission == permission && p.Permissions[i].Allow == allow {
			last := len(p.Permissions) - 1
			p.Permissions[i] = p.Permissions[last]
			p.Permissions = p.Permissions[:last]
			return
		}
	}
}

// RemovePermissions retains only grants whose Allow differs from allow.
func (p *Principal) RemovePermissions(allow bool) {
	kept := p.Permissions[:0]
	for _, g := range p.Permissions {
		if g.Allow != allow {
			kept = append(kept, g)
		}
	}
	p.Permissions = kept
}

// PrincipalUpdate names one field overwritten by UpdateExternal, for the
// caller to persist.
type PrincipalUpdate struct {
	Field string
}

// UpdateExternal merges a freshly-fetched external Principal into p and
// returns the minimal set of field updates the caller must persist.
//
// MemberOf is adopted unconditionally as a fresh append when external is
// non-empty — the caller must not pre-populate p.MemberOf, since this does
// not merge with any existing entries (preserved as the caller's
// responsibility, per the ported semantics). Roles are adopted only when
// local roles are empty. Description/Secrets/Emails/Quota are overwritten
// whenever the external value is present/non-empty and differs from
// local.
func (p *Principal) UpdateExternal(external *Principal) []PrincipalUpdate {
	var updates []PrincipalUpdate

	if len(external.MemberOf) > 0 {
		p.MemberOf = append(p.MemberOf, external.MemberOf...)
		updates = append(updates, PrincipalUpdate{Field: "memberOf"})
	}

	if len(p.Roles) == 0 && len(external.Roles) > 0 {
		p.Roles = append([]uint32(nil), external.Roles...)
		updates = append(updates, PrincipalUpdate{Field: "roles"})
	}

	if external.Description != nil && (p.Description == nil || *p.Description != *external.Description) {
		p.Description = external.Description
		updates = append(updates, PrincipalUpdate{Field: "description"})
	}

	if len(external.Secrets) > 0 && !stringSliceEqual(p.Secrets, external.Secrets) {
		p.Secrets = append([]string(nil), external.Secrets...)
		updates = append(updates, PrincipalUpdate{Field: "secrets"})
	}

	if len(external.Emails) > 0 && !stringSliceEqual(p.Emails, external.Emails) {
		p.Emails = append([]string(nil), external.Emails...)
		updates = append(updates, PrincipalUpdate{Field: "emails"})
	}

	if external.Quota != nil && (p.Quota == nil || *p.Quota != *external.Quota) {
		p.Quota = external.Quota
		updates = append(updates, PrincipalUpdate{Field: "quota"})
	}

	return updates
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
