package querycache

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// canonical sorts map keys, so two maps with the same contents encode identically.
var canonical = jsoniter.ConfigCompatibleWithStandardLibrary

// Key identifies a cached resource, e.g. Key{"jobs", filters}.
// Keys compare structurally: every part is reduced to its canonical JSON form.
type Key []any

// encode returns the canonical form of each part and the id of the whole key.
func (k Key) encode() (id string, parts []string, err error) {
	if len(k) == 0 {
		return "", nil, ErrInvalidKey
	}

	parts = make([]string, len(k))
	for i, p := range k {
		b, err := canonical.Marshal(p)
		if err != nil {
			return "", nil, fmt.Errorf("%w: part %d: %v", ErrInvalidKey, i, err)
		}
		parts[i] = string(b)
	}

	return "[" + strings.Join(parts, ",") + "]", parts, nil
}

// String returns the canonical form of the key, or a placeholder if it cannot be encoded.
func (k Key) String() string {
	id, _, err := k.encode()
	if err != nil {
		return "<invalid key>"
	}
	return id
}

// Equal reports whether two keys are structurally equal.
func (k Key) Equal(other Key) bool {
	a, _, errA := k.encode()
	b, _, errB := other.encode()
	return errA == nil && errB == nil && a == b
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
