package varint

import (
	"math"
	"testing"
)

func TestEncodeSignedScenarios(t *testing.T) {
	tests := map[string]struct {
		v    int32
		want []byte
	}{
		"zero": {0, []byte{0x00}},
		"neg1": {-1, []byte{0x01}},
		"max":  {math.MaxInt32, []byte{0xFE, 0xFF, 0xFF, 0xFF, 0x0F}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := EncodeSigned(tt.v)
			if string(got) != string(tt.want) {
				t.Fatalf("EncodeSigned(%d) = % x, want % x", tt.v, got, tt.want)
			}
			if len(got) > 5 {
				t.Fatalf("encoded length %d exceeds 5 bytes", len(got))
			}
			v, n, err := DecodeSigned(got)
			if err != nil {
				t.Fatalf("DecodeSigned: %v", err)
			}
			if v != tt.v || n != len(got) {
				t.Fatalf("DecodeSigned(% x) = %d, %d, want %d, %d", got, v, n, tt.v, len(got))
			}
		})
	}
}

func TestRoundTripAllSigned(t *testing.T) {
	samples := []int32{0, -1, 1, -2, 2, math.MinInt32, math.MaxInt32, 1000000, -1000000}
	for _, v := range samples {
		enc := EncodeSigned(v)
		if len(enc) > 5 {
			t.Fatalf("encode(%d) produced %d bytes", v, len(enc))
		}
		got, n, err := DecodeSigned(enc)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if got != v || n != len(enc) {
			t.Fatalf("round trip %d -> % x -> %d (consumed %d)", v, enc, got, n)
		}
	}
}

func TestDecodeIncomplete(t *testing.T) {
	enc := EncodeUnsigned(1 << 20)
	_, _, err := DecodeUnsigned(enc[:len(enc)-1])
	if err != ErrIncomplete {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	b := []byte{0x80, 0x80, 0x80, 0x80, 0x80}
	_, _, err := DecodeUnsigned(b)
	if err != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestUnsignedNoZigZag(t *testing.T) {
	enc := EncodeUnsigned(3200)
	want := []byte{0x80, 0x19}
	if string(enc) != string(want) {
		t.Fatalf("EncodeUnsigned(3200) = % x, want % x", enc, want)
	}
}
