package sortkey

import (
	"bytes"
	"math"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encoded(width int, enc func(ptr unsafe.Pointer)) []byte {
	buf := make([]byte, width)
	enc(unsafe.Pointer(unsafe.SliceData(buf)))
	return buf
}

func Test_bswap(t *testing.T) {
	assert.Equal(t, uint16(0x3412), BSWAP16(0x1234))
	assert.Equal(t, uint32(0x78563412), BSWAP32(0x12345678))
	assert.Equal(t, uint64(0xefcdab8967452301), BSWAP64(0x0123456789abcdef))
}

func Test_encodeIntOrder(t *testing.T) {
	values := []int64{math.MinInt64, -100, -1, 0, 1, 100, math.MaxInt64}
	var prev []byte
	for _, v := range values {
		cur := encoded(8, func(ptr unsafe.Pointer) { encodeInt64(ptr, v) })
		if prev != nil {
			require.Negative(t, bytes.Compare(prev, cur), "value %d", v)
		}
		prev = cur
	}
}

func Test_encodeInt32Order(t *testing.T) {
	values := []int32{math.MinInt32, -7, 0, 42, math.MaxInt32}
	var prev []byte
	for _, v := range values {
		cur := encoded(4, func(ptr unsafe.Pointer) { encodeInt32(ptr, v) })
		if prev != nil {
			require.Negative(t, bytes.Compare(prev, cur), "value %d", v)
		}
		prev = cur
	}
}

func Test_encodeFloatOrder(t *testing.T) {
	values := []float64{
		math.Inf(-1), -math.MaxFloat64, -1.5, -math.SmallestNonzeroFloat64,
		0, math.SmallestNonzeroFloat64, 1.5, math.MaxFloat64, math.Inf(1),
		math.NaN(),
	}
	var prev []byte
	for _, v := range values {
		cur := encoded(8, func(ptr unsafe.Pointer) { encodeFloat64(ptr, v) })
		if prev != nil {
			require.Negative(t, bytes.Compare(prev, cur), "value %v", v)
		}
		prev = cur
	}
}

func Test_encodeFloat32NaN(t *testing.T) {
	nan := encoded(4, func(ptr unsafe.Pointer) { encodeFloat32(ptr, float32(math.NaN())) })
	inf := encoded(4, func(ptr unsafe.Pointer) { encodeFloat32(ptr, float32(math.Inf(1))) })
	assert.Positive(t, bytes.Compare(nan, inf))
}

func Test_encodeStringPrefix(t *testing.T) {
	short := encoded(8, func(ptr unsafe.Pointer) { encodeStringPrefix(ptr, "ab", 8) })
	assert.Equal(t, []byte{'a', 'b', 0, 0, 0, 0, 0, 0}, short)

	long := encoded(8, func(ptr unsafe.Pointer) { encodeStringPrefix(ptr, "abcdefghij", 8) })
	assert.Equal(t, []byte("abcdefgh"), long)

	//a string is never below its own prefix
	require.Negative(t, bytes.Compare(short, long))
}
