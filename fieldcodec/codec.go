package fieldcodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	integerPattern = regexp.MustCompile(`^-?[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^-?[0-9]*\.[0-9]+$`)
)

// Encode converts a record into the flat field map form. The record must be
// JSON-marshalable; its JSON field names become the cache field names. Null
// fields are dropped rather than stored.
func Encode(record any) (map[string]string, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("encode record: not an object: %w", err)
	}

	fields := make(map[string]string, len(tree))
	for name, value := range tree {
		encoded, ok, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		if !ok {
			continue
		}
		fields[name] = encoded
	}
	return fields, nil
}

// encodeValue returns the string form of a single decoded JSON value. The
// second return is false when the value is null and must be dropped.
func encodeValue(value any) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	case json.Number:
		return v.String(), true, nil
	default:
		// Nested objects and arrays keep their JSON encoding.
		raw, err := json.Marshal(v)
		if err != nil {
			return "", false, err
		}
		return string(raw), true, nil
	}
}

// Decode converts a flat field map back into a tree of typed values using the
// reconstruction heuristics described in the package documentation.
func Decode(fields map[string]string) map[string]any {
	tree := make(map[string]any, len(fields))
	for name, value := range fields {
		tree[name] = DecodeValue(value)
	}
	return tree
}

// DecodeValue recovers a single typed value from its string encoding. The
// heuristic order is fixed: JSON first, then timestamp, boolean, integer,
// decimal, and finally the raw string.
func DecodeValue(s string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err == nil && !dec.More() {
		if num, ok := parsed.(json.Number); ok {
			return decodeNumber(num)
		}
		// A bare JSON string literal never occurs on the encode path
		// (strings are stored raw), so anything that parsed here is a
		// number, boolean, object, or array.
		if _, ok := parsed.(string); !ok {
			return parsed
		}
	}

	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if integerPattern.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if decimalPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// decodeNumber keeps integers as int64 when they fit and falls back to
// float64 otherwise.
func decodeNumber(num json.Number) any {
	if n, err := num.Int64(); err == nil {
		return n
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return num.String()
}

// DecodeInto rebuilds a typed record from a flat field map. The decoded value
// tree is round-tripped through JSON so that struct tags, time.Time fields,
// and numeric field types all hydrate the same way they were written.
func DecodeInto[T any](fields map[string]string) (*T, error) {
	raw, err := json.Marshal(Decode(fields))
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	record := new(T)
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
