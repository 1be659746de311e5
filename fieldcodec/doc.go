// Package fieldcodec converts typed records to and from the flat cache
// representation: a field name to string-encoded value map.
//
// # Wire Format
//
// The flat form carries no schema. Every non-null field of a record is encoded
// to a single string:
//
//   - strings are stored as-is
//   - booleans become "true"/"false"
//   - integers and floats keep their decimal text form
//   - time values become RFC 3339 (ISO-8601) strings
//   - nested objects and arrays become their JSON encoding
//
// Null and absent fields are dropped entirely; absence, not a stored null,
// represents "no value".
//
// # Reconstruction Heuristics
//
// Because no type tags are stored, [DecodeValue] recovers primitive types by
// pattern matching, in a fixed order that is part of the wire contract:
//
//  1. JSON parsing (numbers, booleans, objects, arrays)
//  2. RFC 3339 timestamps become time.Time
//  3. "true"/"false" become bool
//  4. all-digit strings become int64
//  5. decimal-shaped strings become float64
//  6. anything else stays a string
//
// Reordering these rules changes behavior on ambiguous inputs (a stored string
// "15" decodes as the number 15), so the order must not change. Digit strings
// with leading zeros are not valid JSON numbers and convert through rule 4,
// and integers beyond the int64 range come back as float64 through rule 1.
// Both are deliberate, documented behaviors rather than bugs to fix.
package fieldcodec
