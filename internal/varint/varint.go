// Package varint implements the zig-zag variable-length integer codec used
// to pack arguments into binary RTT log packets.
package varint

import "errors"

// ErrIncomplete is returned when the supplied buffer does not yet contain a
// complete varint; callers should retain the bytes and retry once more data
// arrives.
var ErrIncomplete = errors.New("varint: incomplete")

// ErrMalformed is returned when five bytes have been consumed without
// encountering a terminating byte (high bit clear).
var ErrMalformed = errors.New("varint: malformed, no terminator within 5 bytes")

const maxBytes = 5

// EncodeSigned zig-zag encodes a signed 32-bit value as a little-endian
// base-128 varint, high bit set on all but the last byte.
func EncodeSigned(v int32) []byte {
	u := zigZagEncode(v)
	return EncodeUnsigned(u)
}

// EncodeUnsigned encodes an unsigned 32-bit value with no zig-zag step.
func EncodeUnsigned(u uint32) []byte {
	out := make([]byte, 0, maxBytes)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			out = append(out, b|0x80)
			continue
		}
		out = append(out, b)
		break
	}
	return out
}

// DecodeSigned decodes a zig-zag varint from the head of b, returning the
// value, the number of bytes consumed, and an error.
func DecodeSigned(b []byte) (int32, int, error) {
	u, n, err := DecodeUnsigned(b)
	if err != nil {
		return 0, n, err
	}
	return zigZagDecode(u), n, nil
}

// DecodeUnsigned decodes a plain (non-zig-zag) varint from the head of b.
func DecodeUnsigned(b []byte) (uint32, int, error) {
	var u uint32
	for i := 0; i < maxBytes; i++ {
		if i >= len(b) {
			return 0, 0, ErrIncomplete
		}
		cur := b[i]
		u |= uint32(cur&0x7f) << (7 * uint(i))
		if cur&0x80 == 0 {
			return u, i + 1, nil
		}
	}
	return 0, 0, ErrMalformed
}

func zigZagEncode(v int32) uint32 {
	return (uint32(v) << 1) ^ uint32(v>>31)
}

func zigZagDecode(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}
