package domain

import (
	"strconv"
	"unicode/utf16"
)

// Hash returns the non-negative 32-bit polynomial rolling hash of s:
// h = h*31 + c over the UTF-16 code units of s with int32 wraparound, then |h|.
//
// The absolute value is taken in 64 bits, so math.MinInt32 hashes to 2147483648
// rather than staying negative.
func Hash(s string) int64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// AlertID derives a stable alert id from a rule prefix and the message text.
func AlertID(prefix, message string) string {
	return prefix + strconv.FormatInt(Hash(message), 10)
}
