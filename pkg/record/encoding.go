package record

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// RepairEncoding undoes a double-decoded string. The catalog database stores
// text in a legacy single-byte codepage; somewhere along the transport those
// bytes were decoded as Windows-1252 even when they formed multi-byte UTF-8
// sequences, turning accented characters into pairs like "Ã©".
//
// The repair re-encodes the string through Windows-1252 and checks whether
// the resulting bytes are valid UTF-8 containing a multi-byte sequence. Only
// then is the round trip trusted; anything else returns the input unchanged.
// Best effort: mis-encoded input is expected and never an error.
func RepairEncoding(s string) string {
	if s == "" {
		return s
	}

	// Fast path: pure ASCII cannot be mojibake
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return s
	}
	if !utf8.Valid(raw) {
		return s
	}
	if !hasMultibyte(raw) {
		return s
	}
	return string(raw)
}

func hasMultibyte(b []byte) bool {
	for i := 0; i < len(b); i++ {
		if b[i] >= utf8.RuneSelf {
			return true
		}
	}
	return false
}
