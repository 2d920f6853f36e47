package platform

// Optional marks a request field as supplied or not. The zero value is unset
// and is omitted from request payloads and query strings; Some(v) is always
// sent, even when v is the zero value of T.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool { return o.set }

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// payload is a JSON request body built from supplied fields only.
type payload map[string]any

func setOptional[T any](p payload, key string, o Optional[T]) {
	if v, ok := o.Get(); ok {
		p[key] = v
	}
}
