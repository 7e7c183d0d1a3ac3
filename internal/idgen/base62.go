package idgen

import (
	"errors"
	"fmt"
	"math"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// PlaceIDLength is the width of a place id. 62^11 exceeds math.MaxInt64, so
// every non-negative id fits; the zero padding keeps ids of the same
// generator sorting by creation time.
const PlaceIDLength = 11

var ErrInvalidEncoding = errors.New("invalid base62 string")

var digitOf = func() (t [256]int8) {
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}()

// Encode returns the shortest base62 form of num. Negative input encodes as
// "0".
func Encode(num int64) string {
	return encode(num, 1)
}

// EncodeFixed left-pads the encoding of num with '0' to width characters.
func EncodeFixed(num int64, width int) string {
	return encode(num, width)
}

func encode(num int64, width int) string {
	var buf [PlaceIDLength]byte
	i := len(buf)
	for n := uint64(max(num, 0)); n > 0; n /= 62 {
		i--
		buf[i] = alphabet[n%62]
	}
	for len(buf)-i < width && i > 0 {
		i--
		buf[i] = '0'
	}
	return string(buf[i:])
}

func Decode(s string) (int64, error) {
	if s == "" || len(s) > PlaceIDLength {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEncoding, s)
	}

	var num uint64
	for i := 0; i < len(s); i++ {
		d := digitOf[s[i]]
		if d < 0 {
			return 0, fmt.Errorf("%w: unexpected %q", ErrInvalidEncoding, s[i])
		}
		if num > (math.MaxInt64-uint64(d))/62 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidEncoding, s)
		}
		num = num*62 + uint64(d)
	}
	return int64(num), nil
}

// IsPlaceID reports whether s could have come from NextPlaceID.
func IsPlaceID(s string) bool {
	if len(s) != PlaceIDLength {
		return false
	}
	_, err := Decode(s)
	return err == nil
}
