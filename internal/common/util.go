package common

import "strings"

// WipeByteArray overwrites b with zeros. It is used for passwords read from
// the terminal once they have been sent. A nil slice is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Optional trims s and returns nil when nothing is left, so blank optional
// fields are sent as absent rather than as empty strings.
func Optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
