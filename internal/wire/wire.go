// Package wire knows the worst-case encoded size of the scalar CBOR items
// the generated C code writes.
package wire

import (
	"math"

	"github.com/fxamacker/cbor/v2"
)

var (
	intSizes    [2][9]int // [signed][bytes]
	boolSize    int
	floatSize   int
	doubleSize  int
	nullSize    int
	strHeadSize int
)

func init() {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("wire: CBOR encoder initialization failed: " + err.Error())
	}
	size := func(v any) int {
		data, err := encMode.Marshal(v)
		if err != nil {
			panic("wire: failed to encode reference value: " + err.Error())
		}
		return len(data)
	}

	intSizes[1][1] = size(int8(math.MinInt8))
	intSizes[1][2] = size(int16(math.MinInt16))
	intSizes[1][4] = size(int32(math.MinInt32))
	intSizes[1][8] = size(int64(math.MinInt64))
	intSizes[0][1] = size(uint8(math.MaxUint8))
	intSizes[0][2] = size(uint16(math.MaxUint16))
	intSizes[0][4] = size(uint32(math.MaxUint32))
	intSizes[0][8] = size(uint64(math.MaxUint64))
	boolSize = size(false)
	floatSize = size(float32(math.MaxFloat32))
	doubleSize = size(math.MaxFloat64)
	nullSize = size(nil)
	// A text or byte string head carries its length like an unsigned
	// 32-bit integer.
	strHeadSize = intSizes[0][4]
}

// IntSize returns the largest encoding of an integer of the given width.
func IntSize(bytes int, signed bool) int {
	if bytes <= 0 || bytes >= len(intSizes[0]) {
		bytes = 8
	}
	s := 0
	if signed {
		s = 1
	}
	if n := intSizes[s][bytes]; n > 0 {
		return n
	}
	return intSizes[s][8]
}

// BoolSize is the encoded size of a boolean.
func BoolSize() int { return boolSize }

// FloatSize is the largest encoding of a single precision float.
func FloatSize() int { return floatSize }

// DoubleSize is the largest encoding of a double precision float.
func DoubleSize() int { return doubleSize }

// NullSize is the encoded size of null.
func NullSize() int { return nullSize }

// StrHeadSize is the largest head of a text or byte string.
func StrHeadSize() int { return strHeadSize }
