package normalizers

import "strings"

// Byte-level remapping substitutes every raw byte with a distinct printable
// rune so whitespace and control bytes become ordinary mergeable symbols.
// Printable latin bytes map to themselves; the rest shift into unused
// codepoint ranges. The table is the fixed bijection byte-level BPE
// vocabularies are expressed in, so both directions must match it exactly.

// ByteToRune maps one raw byte to its visible symbol.
func ByteToRune(b byte) rune {
	r := rune(b)
	switch {
	case r == 0x00ad:
		return 0x0143
	case r <= 0x0020:
		return r + 0x0100
	case r >= 0x007f && r <= 0x00a0:
		return r + 0x00a2
	}
	return r
}

// RuneToByte inverts ByteToRune. ok is false for runes outside the table.
func RuneToByte(r rune) (byte, bool) {
	switch {
	case r == 0x0143:
		return 0x00ad, true
	case r >= 0x0100 && r <= 0x0120:
		return byte(r - 0x0100), true
	case r > 0x0120 && r <= 0x0142:
		return byte(r - 0x00a2), true
	case r >= 0 && r < 0x0100:
		return byte(r), true
	}
	return 0, false
}

// ByteEncode rewrites a span byte by byte into the visible alphabet.
func ByteEncode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range []byte(s) {
		sb.WriteRune(ByteToRune(b))
	}
	return sb.String()
}

// ByteDecode inverts ByteEncode, producing the raw byte string. Runes
// outside the table pass through unchanged rather than aborting the decode.
func ByteDecode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if b, ok := RuneToByte(r); ok {
			sb.WriteByte(b)
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
