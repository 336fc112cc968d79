package cacheplugin

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key is a named configuration value with optional metadata.
type Key struct {
	name  string
	value string
	meta  map[string]string
}

// NewKey creates a key with a cleaned name and value.
func NewKey(name, value string) *Key {
	return &Key{name: cleanName(name), value: value}
}

// Name returns the full key name, e.g. "user/sw/app/#0/current".
func (k *Key) Name() string { return k.name }

// String returns the key value.
func (k *Key) String() string { return k.value }

// SetString replaces the key value.
func (k *Key) SetString(value string) { k.value = value }

// Namespace returns the first path segment of the name ("user", "system", ...).
func (k *Key) Namespace() string {
	ns, _, _ := strings.Cut(k.name, "/")
	return ns
}

// Meta returns metadata stored under name.
func (k *Key) Meta(name string) (string, bool) {
	v, ok := k.meta[name]
	return v, ok
}

// SetMeta stores metadata; an empty value removes it.
func (k *Key) SetMeta(name, value string) {
	if value == "" {
		delete(k.meta, name)
		return
	}
	if k.meta == nil {
		k.meta = make(map[string]string)
	}
	k.meta[name] = value
}

// IsBelowOrSame reports whether k is parent or a descendant of it. The root
// parent ("" or "/") covers every key.
func (k *Key) IsBelowOrSame(parent string) bool {
	parent = cleanName(parent)
	if parent == "" {
		return true
	}
	return k.name == parent || strings.HasPrefix(k.name, parent+"/")
}

// Equal compares name, value and metadata.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	if k.name != other.name || k.value != other.value || len(k.meta) != len(other.meta) {
		return false
	}
	for name, v := range k.meta {
		if ov, ok := other.meta[name]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (k *Key) Clone() *Key {
	c := &Key{name: k.name, value: k.value}
	for name, v := range k.meta {
		c.SetMeta(name, v)
	}
	return c
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

// KeySet is a name-ordered set of keys. Appending a key with an existing name
// replaces it.
type KeySet struct {
	keys []*Key
}

// NewKeySet builds a set from keys.
func NewKeySet(keys ...*Key) *KeySet {
	ks := &KeySet{}
	ks.Append(keys...)
	return ks
}

// Len returns the number of keys.
func (ks *KeySet) Len() int { return len(ks.keys) }

// Append inserts keys in name order.
func (ks *KeySet) Append(keys ...*Key) {
	for _, key := range keys {
		if key == nil {
			continue
		}
		i := sort.Search(len(ks.keys), func(i int) bool { return ks.keys[i].name >= key.name })
		if i < len(ks.keys) && ks.keys[i].name == key.name {
			ks.keys[i] = key
			continue
		}
		ks.keys = append(ks.keys, nil)
		copy(ks.keys[i+1:], ks.keys[i:])
		ks.keys[i] = key
	}
}

// AppendSet merges other into ks.
func (ks *KeySet) AppendSet(other *KeySet) {
	if other == nil {
		return
	}
	ks.Append(other.keys...)
}

// Lookup finds a key by name.
func (ks *KeySet) Lookup(name string) (*Key, bool) {
	name = cleanName(name)
	i := sort.Search(len(ks.keys), func(i int) bool { return ks.keys[i].name >= name })
	if i < len(ks.keys) && ks.keys[i].name == name {
		return ks.keys[i], true
	}
	return nil, false
}

// Keys returns the keys in name order. The slice is a copy.
func (ks *KeySet) Keys() []*Key {
	out := make([]*Key, len(ks.keys))
	copy(out, ks.keys)
	return out
}

// Below returns the keys at or below parent.
func (ks *KeySet) Below(parent string) *KeySet {
	out := &KeySet{}
	for _, key := range ks.keys {
		if key.IsBelowOrSame(parent) {
			out.keys = append(out.keys, key)
		}
	}
	return out
}

// Contains reports whether every key of other is present in ks with equal content.
func (ks *KeySet) Contains(other *KeySet) bool {
	for _, key := range other.keys {
		have, ok := ks.Lookup(key.name)
		if !ok || !have.Equal(key) {
			return false
		}
	}
	return true
}

type keyRecord struct {
	Name  string            `json:"name"`
	Value string            `json:"value,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// MarshalJSON encodes the set as an ordered array of records.
func (ks *KeySet) MarshalJSON() ([]byte, error) {
	records := make([]keyRecord, 0, len(ks.keys))
	for _, key := range ks.keys {
		records = append(records, keyRecord{Name: key.name, Value: key.value, Meta: key.meta})
	}
	return json.Marshal(records)
}

// UnmarshalJSON replaces the set with decoded records.
func (ks *KeySet) UnmarshalJSON(data []byte) error {
	var records []keyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode key set: %w", err)
	}
	ks.keys = nil
	for _, rec := range records {
		if cleanName(rec.Name) == "" {
			return fmt.Errorf("decode key set: empty key name")
		}
		key := NewKey(rec.Name, rec.Value)
		for name, v := range rec.Meta {
			key.SetMeta(name, v)
		}
		ks.Append(key)
	}
	return nil
}
