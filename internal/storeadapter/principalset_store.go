package storeadapter

import (
	"context"

	"github.com/larkmail/keepd/internal/directory"
)

// PrincipalSetStore adapts PrincipalRepo's explicit-field Principal
// storage to the PrincipalSet JSON boundary (§4.H/§4.M): Get converts the
// stored Principal into a PrincipalSet field map, and Save converts a
// decoded PrincipalSet back into a Principal before delegating to
// PrincipalRepo.Save (which keeps the full-text search index current).
type PrincipalSetStore struct {
	Principals *PrincipalRepo
}

// NewPrincipalSetStore constructs a PrincipalSetStore over repo.
func NewPrincipalSetStore(repo *PrincipalRepo) *PrincipalSetStore {
	return &PrincipalSetStore{Principals: repo}
}

// Get fetches principal id and projects it onto a PrincipalSet.
func (s *PrincipalSetStore) Get(ctx context.Context, id uint32) (*directory.PrincipalSet, error) {
	p, err := s.Principals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPrincipalSet(p), nil
}

// Save converts set into a Principal and persists it.
func (s *PrincipalSetStore) Save(ctx context.Context, id uint32, set *directory.PrincipalSet) error {
	return s.Principals.Save(ctx, fromPrincipalSet(id, set))
}

// toPrincipalSet projects a Principal's explicit fields onto the dynamic
// PrincipalSet field map used at the JSON boundary.
func toPrincipalSet(p *directory.Principal) *directory.PrincipalSet {
	set := directory.NewPrincipalSet(p.ID, p.Type)

	set.Fields[directory.FieldName] = directory.NewStringValue(p.Name)
	if p.Description != nil {
		set.Fields[directory.FieldDescription] = directory.NewStringValue(*p.Description)
	}
	if len(p.Secrets) > 0 {
		set.Fields[directory.FieldSecrets] = directory.NewStringListValue(p.Secrets)
	}
	if len(p.Emails) > 0 {
		set.Fields[directory.FieldEmails] = directory.NewStringListValue(p.Emails)
	}
	if p.Quota != nil {
		set.Fields[directory.FieldQuota] = directory.NewIntegerValue(*p.Quota)
	}
	if p.Tenant != nil {
		set.Fields[directory.FieldTenant] = directory.NewIntegerValue(uint64(*p.Tenant))
	}
	if len(p.MemberOf) > 0 {
		set.Fields[directory.FieldMemberOf] = directory.NewIntegerListValue(toUint64List(p.MemberOf))
	}
	if len(p.Roles) > 0 {
		set.Fields[directory.FieldRoles] = directory.NewIntegerListValue(toUint64List(p.Roles))
	}
	if len(p.Urls) > 0 {
		set.Fields[directory.FieldUrls] = directory.NewStringListValue(p.Urls)
	}
	if len(p.Lists) > 0 {
		set.Fields[directory.FieldLists] = directory.NewIntegerListValue(toUint64List(p.Lists))
	}
	if p.Picture != nil {
		set.Fields[directory.FieldPicture] = directory.NewStringValue(*p.Picture)
	}

	return set
}

// fromPrincipalSet converts a decoded PrincipalSet back into a Principal
// with explicit fields, for storage. Fields absent from set leave the
// corresponding Principal field at its zero value.
func fromPrincipalSet(id uint32, set *directory.PrincipalSet) *directory.Principal {
	p := &directory.Principal{ID: id, Type: set.Type}

	if v, ok := set.Fields[directory.FieldName]; ok {
		if s := v.IterStr(); len(s) > 0 {
			p.Name = s[0]
		}
	}
	if v, ok := set.Fields[directory.FieldDescription]; ok {
		if s := v.IterStr(); len(s) > 0 {
			p.Description = &s[0]
		}
	}
	if v, ok := set.Fields[directory.FieldSecrets]; ok {
		p.Secrets = v.IterStr()
	}
	if v, ok := set.Fields[directory.FieldEmails]; ok {
		p.Emails = v.IterStr()
	}
	if v, ok := set.Fields[directory.FieldQuota]; ok {
		if n := v.IterInt(); len(n) > 0 {
			p.Quota = &n[0]
		}
	}
	if v, ok := set.Fields[directory.FieldTenant]; ok {
		if n := v.IterInt(); len(n) > 0 {
			t := uint32(n[0])
			p.Tenant = &t
		}
	}
	if v, ok := set.Fields[directory.FieldMemberOf]; ok {
		p.MemberOf = toUint32List(v.IterInt())
	}
	if v, ok := set.Fields[directory.FieldRoles]; ok {
		p.Roles = toUint32List(v.IterInt())
	}
	if v, ok := set.Fields[directory.FieldUrls]; ok {
		p.Urls = v.IterStr()
	}
	if v, ok := set.Fields[directory.FieldLists]; ok {
		p.Lists = toUint32List(v.IterInt())
	}
	if v, ok := set.Fields[directory.FieldPicture]; ok {
		if s := v.IterStr(); len(s) > 0 {
			p.Picture = &s[0]
		}
	}

	return p
}

func toUint64List(in []uint32) []uint64 {
	out := make([]uint64, len(in))
	for i, n := range in {
		out[i] = uint64(n)
	}
	return out
}

func toUint32List(in []uint64) []uint32 {
	out := make([]uint32, len(in))
	for i, n := range in {
		out[i] = uint32(n)
	}
	return out
}
