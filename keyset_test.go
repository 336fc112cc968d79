package cacheplugin

import (
	"encoding/json"
	"testing"
)

func TestKeyNameCleaning(t *testing.T) {
	k := NewKey(" /user//sw/app/ ", "v")
	if k.Name() != "user/sw/app" {
		t.Fatalf("unexpected cleaned name %q", k.Name())
	}
	if k.Namespace() != "user" {
		t.Fatalf("unexpected namespace %q", k.Namespace())
	}
	if !k.IsBelowOrSame("user/sw") || !k.IsBelowOrSame("user/sw/app") {
		t.Fatalf("expected key below parent")
	}
	if k.IsBelowOrSame("user/s") {
		t.Fatalf("prefix match must respect segment boundaries")
	}
}

func TestKeyMetaAndEqual(t *testing.T) {
	a := NewKey("user/a", "1")
	a.SetMeta("type", "long")
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatalf("expected clone equal")
	}
	b.SetMeta("type", "string")
	if a.Equal(b) {
		t.Fatalf("expected meta difference detected")
	}
	b.SetMeta("type", "")
	if _, ok := b.Meta("type"); ok {
		t.Fatalf("expected empty meta value to delete")
	}
	if a.Equal(nil) {
		t.Fatalf("expected non-nil key unequal to nil")
	}
	var nilKey *Key
	if !nilKey.Equal(nil) {
		t.Fatalf("expected nil keys equal")
	}
}

func TestKeySetOrderingAndReplace(t *testing.T) {
	ks := NewKeySet(NewKey("user/b", "2"), NewKey("user/a", "1"), nil, NewKey("user/c", "3"))
	ks.Append(NewKey("user/b", "two"))
	if ks.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", ks.Len())
	}
	keys := ks.Keys()
	if keys[0].Name() != "user/a" || keys[1].String() != "two" || keys[2].Name() != "user/c" {
		t.Fatalf("unexpected order or values: %v %v %v", keys[0].Name(), keys[1].String(), keys[2].Name())
	}
	keys[0] = nil
	if _, ok := ks.Lookup("user/a"); !ok {
		t.Fatalf("expected Keys to return a copy")
	}
}

func TestKeySetBelowAndContains(t *testing.T) {
	ks := appKeys()
	below := ks.Below("user/sw/app")
	if below.Len() != 3 {
		t.Fatalf("expected 3 keys below, got %d", below.Len())
	}
	if !ks.Contains(below) {
		t.Fatalf("expected superset to contain subset")
	}
	if below.Contains(ks) {
		t.Fatalf("expected subset not to contain superset")
	}
	other := NewKeySet(NewKey("user/sw/app/color", "green"))
	if ks.Contains(other) {
		t.Fatalf("expected value difference detected")
	}
	if !ks.Contains(NewKeySet()) {
		t.Fatalf("expected empty set contained")
	}
	for _, root := range []string{"", "/", " / "} {
		if got := ks.Below(root); got.Len() != ks.Len() {
			t.Fatalf("expected root %q to cover every key, got %d of %d", root, got.Len(), ks.Len())
		}
	}
}

func TestKeySetJSON(t *testing.T) {
	ks := NewKeySet(NewKey("user/a", "1"), NewKey("user/b", ""))
	k, _ := ks.Lookup("user/a")
	k.SetMeta("comment", "first")

	body, err := json.Marshal(ks)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded KeySet
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Contains(ks) || !ks.Contains(&decoded) {
		t.Fatalf("expected identical sets after decode")
	}

	if err := json.Unmarshal([]byte(`[{"name":""}]`), &decoded); err == nil {
		t.Fatalf("expected empty name rejected")
	}
	if err := json.Unmarshal([]byte(`{"name":"x"}`), &decoded); err == nil {
		t.Fatalf("expected non-array rejected")
	}
}

func TestRequestFor(t *testing.T) {
	if _, ok := RequestFor(ContractRoot).(Introspect); !ok {
		t.Fatalf("expected introspection for contract root")
	}
	if _, ok := RequestFor("/" + ContractRoot + "/").(Introspect); !ok {
		t.Fatalf("expected introspection for uncleaned contract root")
	}
	op, ok := RequestFor(ContractRoot + "/exports").(DataOp)
	if !ok || op.Key != ContractRoot+"/exports" {
		t.Fatalf("expected data op below contract root, got %#v", op)
	}
	if op, ok := RequestFor("user/sw/app").(DataOp); !ok || op.Key != "user/sw/app" {
		t.Fatalf("expected data op, got %#v", op)
	}
}

func TestContractDescriptor(t *testing.T) {
	c := Contract()
	root, ok := c.Lookup(ContractRoot)
	if !ok || root.String() != contractStatus {
		t.Fatalf("unexpected contract root: %v", root)
	}
	if _, ok := c.Lookup(ContractRoot + "/exports"); !ok {
		t.Fatalf("expected exports key")
	}
	exports := Exports(c)
	if len(exports) != len(ExportedOperations) {
		t.Fatalf("expected %d exports, got %v", len(ExportedOperations), exports)
	}
	for i, name := range []string{"open", "close", "get", "set", "error", "checkConfig"} {
		if exports[i] != name {
			t.Fatalf("unexpected export %d: %s", i, exports[i])
		}
	}
	if v, ok := c.Lookup(ContractRoot + "/infos/version"); !ok || v.String() != PluginVersion {
		t.Fatalf("unexpected version info: %v", v)
	}
	for _, info := range []string{"author", "licence", "provides", "status", "description"} {
		if _, ok := c.Lookup(ContractRoot + "/infos/" + info); !ok {
			t.Fatalf("missing info %s", info)
		}
	}

	// Callers get a fresh copy each time.
	root.SetString("tampered")
	if again, _ := Contract().Lookup(ContractRoot); again.String() != contractStatus {
		t.Fatalf("expected independent descriptor copies")
	}
}
