package utils

// Ptr returns a pointer to a copy of v. Handy for optional fields in literals.
func Ptr[T any](v T) *T {
	return &v
}

// Deref reports the pointed-to value and whether p was set at all.
func Deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
