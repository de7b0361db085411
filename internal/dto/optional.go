package dto

import "encoding/json"

// Optional is a tri-state JSON field: absent, explicit null, or a value.
// The zero value means the key was not present in the payload.
type Optional[T any] struct {
	// Set is true when the key appeared in the payload, even as null.
	Set bool
	// Valid is true when a non-null value was decoded.
	Valid bool
	Value T
}

// Some wraps a concrete value; useful in tests and internal callers.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null represents an explicit JSON null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON records presence before decoding. encoding/json only calls
// this for keys present in the payload, so absence keeps the zero value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON renders the value, or null when none was set.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
