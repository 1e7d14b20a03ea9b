package directory

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// Scenario 6: {"id":7,"type":"group","name":"ops","emails":"x@y","memberOf":["a","b"]}
// decodes id-discarded, name kept as a scalar (Name is not a StringOrMany
// field), a bare-string list field promoted to a single-element list, and
// an explicit array kept as a list.
func TestUnmarshalJSONScenarioSix(t *testing.T) {
	input := `{"id":7,"type":"group","name":"ops","emails":"x@y","memberOf":["a","b"]}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if p.ID != 0 {
		t.Errorf("expected id to be discarded (zero value), got %d", p.ID)
	}
	if p.Type != Group {
		t.Errorf("expected type Group, got %v", p.Type)
	}
	if got := p.Fields[FieldName].IterStr(); len(got) != 1 || got[0] != "ops" {
		t.Errorf("expected name=[ops], got %v", got)
	}
	if got := p.Fields[FieldEmails].IterStr(); len(got) != 1 || got[0] != "x@y" {
		t.Errorf("expected emails=[x@y], got %v", got)
	}
	if !reflect.DeepEqual(p.Fields[FieldEmails], NewStringListValue([]string{"x@y"})) {
		t.Errorf("expected a bare-string emails value to decode as a single-element StringList, got %#v", p.Fields[FieldEmails])
	}
	if got := p.Fields[FieldMemberOf].IterStr(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected memberOf=[a b], got %v", got)
	}
}

// An explicit single-element array for a StringOrMany field must round
// trip as an array, not collapse to a scalar.
func TestUnmarshalJSONExplicitSingleElementArrayStaysAList(t *testing.T) {
	input := `{"type":"group","emails":["x@y"]}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(p.Fields[FieldEmails], NewStringListValue([]string{"x@y"})) {
		t.Errorf("expected emails=[x@y] as a StringList, got %#v", p.Fields[FieldEmails])
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Contains(out, []byte(`"emails":["x@y"]`)) {
		t.Errorf("expected emails to re-serialize as an array, got %s", out)
	}
}

func TestMarshalJSONRoundTripsScenarioSix(t *testing.T) {
	input := `{"id":7,"type":"group","name":"ops","emails":"x@y","memberOf":["a","b"]}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var reDecoded PrincipalSet
	if err := json.Unmarshal(out, &reDecoded); err != nil {
		t.Fatalf("re-unmarshal of marshaled output failed: %v", err)
	}

	if reDecoded.Type != p.Type {
		t.Errorf("type did not round trip: got %v, want %v", reDecoded.Type, p.Type)
	}
	if !strSliceEqual(reDecoded.Fields[FieldName].IterStr(), p.Fields[FieldName].IterStr()) {
		t.Errorf("name did not round trip")
	}
	if !strSliceEqual(reDecoded.Fields[FieldMemberOf].IterStr(), p.Fields[FieldMemberOf].IterStr()) {
		t.Errorf("memberOf did not round trip")
	}
}

func TestUnmarshalJSONRejectsOversizedString(t *testing.T) {
	oversized := strings.Repeat("a", maxStringLen+1)
	input := `{"type":"individual","name":"` + oversized + `"}`

	var p PrincipalSet
	err := json.Unmarshal([]byte(input), &p)
	if err == nil {
		t.Fatal("expected an error for an oversized string")
	}
	if !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
}

func TestUnmarshalJSONRejectsUnknownKey(t *testing.T) {
	input := `{"type":"individual","bogusField":"x"}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestUnmarshalJSONRequiresType(t *testing.T) {
	input := `{"name":"ops"}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err == nil {
		t.Fatal("expected an error when type is missing")
	}
}

func TestUnmarshalJSONQuotaAcceptsNumericString(t *testing.T) {
	input := `{"type":"individual","quota":"12345"}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	got := p.Fields[FieldQuota].IterInt()
	if len(got) != 1 || got[0] != 12345 {
		t.Errorf("expected quota=[12345], got %v", got)
	}
}

func TestUnmarshalJSONQuotaAcceptsInteger(t *testing.T) {
	input := `{"type":"individual","quota":42}`

	var p PrincipalSet
	if err := json.Unmarshal([]byte(input), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	got := p.Fields[FieldQuota].IterInt()
	if len(got) != 1 || got[0] != 42 {
		t.Errorf("expected quota=[42], got %v", got)
	}
}

// P4: round trip holds for every field shape accepted by deserialize.
func TestMarshalUnmarshalRoundTripsAllShapes(t *testing.T) {
	p := NewPrincipalSet(3, Role)
	p.Fields[FieldName] = NewStringValue("solo")
	p.Fields[FieldEmails] = NewStringListValue([]string{"a@b", "c@d"})
	p.Fields[FieldQuota] = NewIntegerValue(99)

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got PrincipalSet
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if got.Type != Role {
		t.Errorf("type mismatch: got %v", got.Type)
	}
	if !strSliceEqual(got.Fields[FieldName].IterStr(), []string{"solo"}) {
		t.Errorf("name mismatch: got %v", got.Fields[FieldName].IterStr())
	}
	if !strSliceEqual(got.Fields[FieldEmails].IterStr(), []string{"a@b", "c@d"}) {
		t.Errorf("emails mismatch: got %v", got.Fields[FieldEmails].IterStr())
	}
	if !intSliceEqual(got.Fields[FieldQuota].IterInt(), []uint64{99}) {
		t.Errorf("quota mismatch: got %v", got.Fields[FieldQuota].IterInt())
	}
}

func TestMarshalJSONCarriesIDField(t *testing.T) {
	p := NewPrincipalSet(55, Individual)
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Contains(out, []byte(`"id":55`)) {
		t.Errorf("expected marshaled output to carry the id field, got %s", out)
	}
}
