package mysql

import "time"

// Sanitize replaces every absent value (untyped nil, nil pointer, nil slice)
// with an explicit NULL and dereferences present pointers. It edits m in place
// and returns it.
func Sanitize(m map[string]any) map[string]any {
	for k, v := range m {
		switch x := v.(type) {
		case nil:
			m[k] = nil
		case *string:
			m[k] = derefAny(x)
		case *int:
			m[k] = derefAny(x)
		case *int64:
			m[k] = derefAny(x)
		case *float64:
			m[k] = derefAny(x)
		case *bool:
			m[k] = derefAny(x)
		case *time.Time:
			m[k] = derefAny(x)
		case []byte:
			if x == nil {
				m[k] = nil
			}
		case []string:
			if x == nil {
				m[k] = nil
			}
		}
	}
	return m
}

func derefAny[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
