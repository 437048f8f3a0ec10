// Package fingerprint computes content hashes used to detect unchanged products.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Hash returns the SHA-256 of the canonical JSON form of v as 64 hex chars.
func Hash(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	return HashJSON(b)
}

// HashJSON hashes an already serialized document. Formatting whitespace does not matter.
func HashJSON(data []byte) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("failed to decode record: %w", err)
	}

	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical serializes a decoded JSON value with sorted object keys.
// Lists made only of objects are sorted by the serialized form of each element;
// other lists keep their order.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case []any:
		elems := make([][]byte, len(t))
		for i, e := range t {
			b, err := Canonical(e)
			if err != nil {
				return err
			}
			elems[i] = b
		}
		if allObjects(t) {
			sort.Slice(elems, func(i, j int) bool { return bytes.Compare(elems[i], elems[j]) < 0 })
		}

		buf.WriteByte('[')
		for i, b := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(b)
		}
		buf.WriteByte(']')

	case json.Number:
		buf.WriteString(t.String())

	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to encode %T: %w", v, err)
		}
		buf.Write(b)
	}
	return nil
}

// allObjects is false for empty and mixed lists; those keep source order.
func allObjects(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, e := range list {
		if _, ok := e.(map[string]any); !ok {
			return false
		}
	}
	return true
}
