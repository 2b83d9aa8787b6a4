package resultcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// volatileKeys never take part in a request fingerprint
var volatileKeys = map[string]struct{}{
	"timestamp":    {},
	"requested_at": {},
	"request_id":   {},
	"trace_id":     {},
	"user_id":      {},
}

// Canonicalize serializes params deterministically for hashing.
// Volatile keys are dropped at every depth and mapping keys are sorted.
func Canonicalize(params interface{}) (string, error) {
	tree, err := toTree(params)
	if err != nil {
		return "", err
	}
	return encodeTree(stripVolatile(tree))
}

// CanonicalJSON serializes v with sorted keys, keeping every field
func CanonicalJSON(v interface{}) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	s, err := encodeTree(tree)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// RequestHash fingerprints a request of the given type
func RequestHash(requestType, canonical string) string {
	sum := sha256.Sum256([]byte(requestType + ":" + canonical))
	return hex.EncodeToString(sum[:])
}

// ResultHash fingerprints a result payload for audit
func ResultHash(payload interface{}) (string, error) {
	data, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// toTree round-trips v through JSON into maps, slices and json.Number
func toTree(v interface{}) (interface{}, error) {
	var raw []byte
	switch t := v.(type) {
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("canonical marshal failed: %w", err)
		}
		raw = data
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical decode failed: %w", err)
	}
	return tree, nil
}

func stripVolatile(node interface{}) interface{} {
	switch t := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			if _, skip := volatileKeys[k]; skip {
				continue
			}
			out[k] = stripVolatile(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = stripVolatile(v)
		}
		return out
	default:
		return node
	}
}

// encodeTree emits compact JSON; encoding/json sorts map keys
func encodeTree(tree interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return "", fmt.Errorf("canonical encode failed: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
