package utils

// Value dereferences v, yielding the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// OptionalString maps "" to nil, for nullable text columns such as a profile's phone.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
