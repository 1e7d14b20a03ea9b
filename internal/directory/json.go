package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// maxStringLen is the JSON boundary's per-string size limit.
const maxStringLen = 512

// ErrStringTooLong is returned when a decoded string exceeds maxStringLen.
var ErrStringTooLong = errors.New("string too long")

// MarshalJSON encodes a PrincipalSet as an object with "id", "type", and
// one entry per populated field: list-shaped values encode as arrays,
// scalars as primitives.
func (p PrincipalSet) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(p.Fields)+2)
	obj["id"] = p.ID
	obj["type"] = p.Type.String()

	for field, val := range p.Fields {
		switch val.kind {
		case kindString:
			obj[field.String()] = val.str
		case kindStringList:
			obj[field.String()] = val.strList
		case kindInteger:
			obj[field.String()] = val.integer
		case kindIntegerList:
			obj[field.String()] = val.intList
		}
	}

	return json.Marshal(obj)
}

// UnmarshalJSON decodes a PrincipalSet, replicating the serde Visitor
// behavior it was ported from: an "id" key is accepted and discarded,
// unknown keys are rejected, "type" is resolved via ParseType, list-valued
// fields accept a bare string or an array of strings, Quota/Tenant accept
// either an integer or a numeric string, and every string is capped at
// maxStringLen bytes.
func (p *PrincipalSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := NewPrincipalSet(0, Other)
	sawType := false

	for key, val := range raw {
		switch key {
		case "id":
			continue
		case "type":
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("decoding type: %w", err)
			}
			t, err := ParseType(s)
			if err != nil {
				return err
			}
			result.Type = t
			sawType = true
		default:
			field, ok := fieldFromString(key)
			if !ok {
				return fmt.Errorf("unknown field %q", key)
			}
			if err := decodeFieldValue(result, field, val); err != nil {
				return err
			}
		}
	}

	if !sawType {
		return errors.New("missing required field \"type\"")
	}

	*p = *result
	return nil
}

// isScalarStringField reports whether field decodes to a scalar String
// even when given a bare JSON string, never a single-element list:
// Name/Description/Picture are genuinely single-valued fields in the
// ground truth, unlike the StringOrMany list fields below.
func isScalarStringField(field PrincipalField) bool {
	switch field {
	case FieldName, FieldDescription, FieldPicture:
		return true
	default:
		return false
	}
}

func decodeFieldValue(ps *PrincipalSet, field PrincipalField, raw json.RawMessage) error {
	switch field {
	case FieldQuota, FieldTenant:
		n, err := decodeStringOrU64(raw)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", field, err)
		}
		ps.Fields[field] = NewIntegerValue(n)
		return nil
	default:
		list, err := decodeStringOrMany(raw)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", field, err)
		}
		for _, s := range list {
			if len(s) > maxStringLen {
				return ErrStringTooLong
			}
		}
		if len(list) == 0 {
			return nil
		}
		if isScalarStringField(field) {
			ps.Fields[field] = NewStringValue(list[0])
			return nil
		}
		// StringOrMany::One(v) always yields a single-element list, never
		// a scalar, for Secrets/Emails/MemberOf/Roles/Lists/Urls.
		ps.Fields[field] = NewStringListValue(list)
		return nil
	}
}

// decodeStringOrMany accepts either a bare string or an array of strings.
func decodeStringOrMany(raw json.RawMessage) ([]string, error) {
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("expected a string or array of strings: %w", err)
	}
	return many, nil
}

// decodeStringOrU64 accepts either a JSON integer or a numeric string.
func decodeStringOrU64(raw json.RawMessage) (uint64, error) {
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected an integer or numeric string: %w", err)
	}
	if len(s) > maxStringLen {
		return 0, ErrStringTooLong
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric string %q: %w", s, err)
	}
	return n, nil
}
