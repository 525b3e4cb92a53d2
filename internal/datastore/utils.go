package datastore

// StringPtrOrNil converts string to pointer, or nil if string is empty
func StringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int32PtrOrNilZero converts int32 to pointer, or nil if value is 0
func Int32PtrOrNilZero(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}

// Int64PtrOrNilZero converts int64 to pointer, or nil if value is 0
func Int64PtrOrNilZero(i int64) *int64 {
	if i == 0 {
		return nil
	}
	return &i
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
