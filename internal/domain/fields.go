package domain

// Fields is an open string-keyed map used for the loosely structured
// req/err/meta payloads. Accessors report absence explicitly so optional
// field checks stay simple presence predicates. A nil Fields behaves
// like an empty one.
type Fields map[string]any

// String returns the value under key when it is a non-empty string.
func (f Fields) String(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	s, ok := f[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Bool returns the value under key when it is truthy: a true boolean, a
// non-zero number, or a non-empty string. JSON payloads written by mixed
// producers are not consistent about boolean encoding.
func (f Fields) Bool(key string) bool {
	if f == nil {
		return false
	}
	switch v := f[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "false" && v != "0"
	}
	return false
}

// Has reports whether key is present, regardless of value.
func (f Fields) Has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f[key]
	return ok
}

// Clone returns a shallow copy. Nested values are shared; callers that
// inject top-level keys get an independent map.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f)+4)
	for k, v := range f {
		out[k] = v
	}
	return out
}
