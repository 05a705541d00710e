package domain

import "encoding/json"

// Field is a tri-state JSON value: absent (Set=false), explicit null
// (Set=true, Valid=false) or a value.
type Field[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a present, non-null Field.
func Some[T any](v T) Field[T] { return Field[T]{Set: true, Valid: true, Value: v} }

// Null returns an explicit null Field.
func Null[T any]() Field[T] { return Field[T]{Set: true} }

// UnmarshalJSON is only invoked for keys present in the document.
func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Valid = false
		var zero T
		f.Value = zero
		return nil
	}
	if err := json.Unmarshal(b, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Apply merges the field onto a nullable destination.
func (f Field[T]) Apply(dst **T) {
	if !f.Set {
		return
	}
	if !f.Valid {
		*dst = nil
		return
	}
	v := f.Value
	*dst = &v
}
