package directory

import "strconv"

// PrincipalField names one slot in a PrincipalSet's dynamic field map.
type PrincipalField int

const (
	FieldName PrincipalField = iota
	FieldDescription
	FieldSecrets
	FieldEmails
	FieldQuota
	FieldTenant
	FieldMemberOf
	FieldRoles
	FieldUrls
	FieldLists
	FieldPicture
)

// String returns the JSON boundary key for a field.
func (f PrincipalField) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldDescription:
		return "description"
	case FieldSecrets:
		return "secrets"
	case FieldEmails:
		return "emails"
	case FieldQuota:
		return "quota"
	case FieldTenant:
		return "tenant"
	case FieldMemberOf:
		return "memberOf"
	case FieldRoles:
		return "roles"
	case FieldUrls:
		return "urls"
	case FieldLists:
		return "lists"
	case FieldPicture:
		return "picture"
	default:
		return "unknown"
	}
}

// fieldFromString resolves a JSON key to a PrincipalField.
func fieldFromString(s string) (PrincipalField, bool) {
	for _, f := range []PrincipalField{
		FieldName, FieldDescription, FieldSecrets, FieldEmails, FieldQuota,
		FieldTenant, FieldMemberOf, FieldRoles, FieldUrls, FieldLists, FieldPicture,
	} {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}

// valueKind discriminates PrincipalValue's four possible shapes.
type valueKind int

const (
	kindString valueKind = iota
	kindStringList
	kindInteger
	kindIntegerList
)

// PrincipalValue is a sum of String/StringList/Integer/IntegerList. Every
// reachable PrincipalValue is exactly one of these four shapes (P1); the
// zero value is an empty string scalar.
type PrincipalValue struct {
	kind    valueKind
	str     string
	strList []string
	integer uint64
	intList []uint64
}

// NewStringValue constructs a scalar string PrincipalValue.
func NewStringValue(s string) PrincipalValue { return PrincipalValue{kind: kindString, str: s} }

// NewStringListValue constructs a string-list PrincipalValue.
func NewStringListValue(list []string) PrincipalValue {
	return PrincipalValue{kind: kindStringList, strList: append([]string(nil), list...)}
}

// NewIntegerValue constructs a scalar integer PrincipalValue.
func NewIntegerValue(n uint64) PrincipalValue { return PrincipalValue{kind: kindInteger, integer: n} }

// NewIntegerListValue constructs an integer-list PrincipalValue.
func NewIntegerListValue(list []uint64) PrincipalValue {
	return PrincipalValue{kind: kindIntegerList, intList: append([]uint64(nil), list...)}
}

// IterStr yields the single scalar, the list elements, or nil, depending
// on the value's actual shape. It never crosses types: an Integer or
// IntegerList value yields nil.
func (v PrincipalValue) IterStr() []string {
	switch v.kind {
	case kindString:
		return []string{v.str}
	case kindStringList:
		return v.strList
	default:
		return nil
	}
}

// IterInt is IterStr's integer-shaped counterpart.
func (v PrincipalValue) IterInt() []uint64 {
	switch v.kind {
	case kindInteger:
		return []uint64{v.integer}
	case kindIntegerList:
		return v.intList
	default:
		return nil
	}
}

// SerializedSize returns the value's size per the wire accounting: strings
// count len+2 (length prefix), integers count 8 bytes, lists sum their
// elements.
func (v PrincipalValue) SerializedSize() uint64 {
	switch v.kind {
	case kindString:
		return uint64(len(v.str)) + 2
	case kindStringList:
		var total uint64
		for _, s := range v.strList {
			total += uint64(len(s)) + 2
		}
		return total
	case kindInteger:
		return 8
	case kindIntegerList:
		return 8 * uint64(len(v.intList))
	default:
		return 0
	}
}

func stringToInt(s string) uint64 {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0
	}
	return n
}

func intToString(n uint64) string {
	return strconv.FormatUint(n, 10)
}

func dedupeAppendStr(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func dedupePrependStr(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append([]string{v}, list...)
}

func dedupeAppendInt(list []uint64, v uint64) []uint64 {
	for _, n := range list {
		if n == v {
			return list
		}
	}
	return append(list, v)
}

// promoteForAppendStr is the single helper shared by AppendStr and
// PrependStr, isolating the cross-type promotion rules so every string
// mutator applies them identically.
func promoteForAppendStr(cur PrincipalValue, v string, prepend bool) PrincipalValue {
	switch cur.kind {
	case kindString:
		if cur.str == v {
			return cur
		}
		if prepend {
			return NewStringListValue([]string{v, cur.str})
		}
		return NewStringListValue([]string{cur.str, v})
	case kindStringList:
		if prepend {
			return NewStringListValue(dedupePrependStr(cur.strList, v))
		}
		return NewStringListValue(dedupeAppendStr(cur.strList, v))
	case kindInteger:
		existing := intToString(cur.integer)
		if prepend {
			return NewStringListValue(dedupePrependStr([]string{existing}, v))
		}
		return NewStringListValue(dedupeAppendStr([]string{existing}, v))
	case kindIntegerList:
		converted := make([]string, len(cur.intList))
		for i, n := range cur.intList {
			converted[i] = intToString(n)
		}
		if prepend {
			return NewStringListValue(dedupePrependStr(converted, v))
		}
		return NewStringListValue(dedupeAppendStr(converted, v))
	default:
		return NewStringValue(v)
	}
}

// promoteForAppendInt is promoteForAppendStr's integer-shaped counterpart.
func promoteForAppendInt(cur PrincipalValue, v uint64) PrincipalValue {
	switch cur.kind {
	case kindInteger:
		if cur.integer == v {
			return cur
		}
		return NewIntegerListValue([]uint64{cur.integer, v})
	case kindIntegerList:
		return NewIntegerListValue(dedupeAppendInt(cur.intList, v))
	case kindString:
		existing := stringToInt(cur.str)
		return NewIntegerListValue(dedupeAppendInt([]uint64{existing}, v))
	case kindStringList:
		converted := make([]uint64, len(cur.strList))
		for i, s := range cur.strList {
			converted[i] = stringToInt(s)
		}
		return NewIntegerListValue(dedupeAppendInt(converted, v))
	default:
		return NewIntegerValue(v)
	}
}

// PrincipalSet is the ad-hoc, dynamically-typed principal view used at the
// directory JSON boundary.
type PrincipalSet struct {
	ID     uint32
	Type   Type
	Fields map[PrincipalField]PrincipalValue
}

// NewPrincipalSet returns an empty PrincipalSet for the given id/type.
func NewPrincipalSet(id uint32, typ Type) *PrincipalSet {
	return &PrincipalSet{ID: id, Type: typ, Fields: make(map[PrincipalField]PrincipalValue)}
}

// HasField reports whether field is populated.
func (p *PrincipalSet) HasField(field PrincipalField) bool {
	_, ok := p.Fields[field]
	return ok
}

// HasStrValue reports whether field's string-shaped value contains v,
// scalar or list.
func (p *PrincipalSet) HasStrValue(field PrincipalField, v string) bool {
	cur, ok := p.Fields[field]
	if !ok {
		return false
	}
	for _, s := range cur.IterStr() {
		if s == v {
			return true
		}
	}
	return false
}

// AppendStr appends v to field, applying the promotion rules in §4.G/H. A
// vacant field becomes a single-element StringList, not a scalar, matching
// the ground truth's Entry::Vacant insert.
func (p *PrincipalSet) AppendStr(field PrincipalField, v string) {
	cur, ok := p.Fields[field]
	if !ok {
		p.Fields[field] = NewStringListValue([]string{v})
		return
	}
	p.Fields[field] = promoteForAppendStr(cur, v, false)
}

// PrependStr inserts v at position 0, applying the same promotion rules as
// AppendStr, including the vacant-field-becomes-a-list behavior.
func (p *PrincipalSet) PrependStr(field PrincipalField, v string) {
	cur, ok := p.Fields[field]
	if !ok {
		p.Fields[field] = NewStringListValue([]string{v})
		return
	}
	p.Fields[field] = promoteForAppendStr(cur, v, true)
}

// AppendInt appends v to field, applying the cross-type promotion rules.
func (p *PrincipalSet) AppendInt(field PrincipalField, v uint64) {
	cur, ok := p.Fields[field]
	if !ok {
		p.Fields[field] = NewIntegerValue(v)
		return
	}
	p.Fields[field] = promoteForAppendInt(cur, v)
}

// RetainStr filters field's string elements through keep, deleting the
// field entirely once keep empties it. Fields not shaped as String or
// StringList are left untouched.
func (p *PrincipalSet) RetainStr(field PrincipalField, keep func(string) bool) {
	cur, ok := p.Fields[field]
	if !ok {
		return
	}
	switch cur.kind {
	case kindString:
		if !keep(cur.str) {
			delete(p.Fields, field)
		}
	case kindStringList:
		out := cur.strList[:0]
		for _, s := range cur.strList {
			if keep(s) {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			delete(p.Fields, field)
			return
		}
		p.Fields[field] = NewStringListValue(out)
	}
}

// RetainInt is RetainStr's integer-shaped counterpart.
func (p *PrincipalSet) RetainInt(field PrincipalField, keep func(uint64) bool) {
	cur, ok := p.Fields[field]
	if !ok {
		return
	}
	switch cur.kind {
	case kindInteger:
		if !keep(cur.integer) {
			delete(p.Fields, field)
		}
	case kindIntegerList:
		out := cur.intList[:0]
		for _, n := range cur.intList {
			if keep(n) {
				out = append(out, n)
			}
		}
		if len(out) == 0 {
			delete(p.Fields, field)
			return
		}
		p.Fields[field] = NewIntegerListValue(out)
	}
}
