package sortkey

import (
	"math"
	"unsafe"

	"github.com/rowix/rowix/pkg/util"
)

func BSWAP16(x uint16) uint16 {
	return ((x & 0xff00) >> 8) | ((x & 0x00ff) << 8)
}

func BSWAP32(x uint32) uint32 {
	return ((x & 0xff000000) >> 24) | ((x & 0x00ff0000) >> 8) |
		((x & 0x0000ff00) << 8) | ((x & 0x000000ff) << 24)

}

func BSWAP64(x uint64) uint64 {
	return ((x & 0xff00000000000000) >> 56) | ((x & 0x00ff000000000000) >> 40) |
		((x & 0x0000ff0000000000) >> 24) | ((x & 0x000000ff00000000) >> 8) |
		((x & 0x00000000ff000000) << 8) | ((x & 0x0000000000ff0000) << 24) |
		((x & 0x000000000000ff00) << 40) | ((x & 0x00000000000000ff) << 56)

}

func FlipSign(b uint8) uint8 {
	return b ^ 128
}

func encodeInt8(ptr unsafe.Pointer, value int8) {
	util.Store[uint8](FlipSign(uint8(value)), ptr)
}

func encodeInt16(ptr unsafe.Pointer, value int16) {
	util.Store[uint16](BSWAP16(uint16(value)), ptr)
	util.Store[uint8](FlipSign(util.Load[uint8](ptr)), ptr)
}

func encodeInt32(ptr unsafe.Pointer, value int32) {
	util.Store[uint32](BSWAP32(uint32(value)), ptr)
	util.Store[uint8](FlipSign(util.Load[uint8](ptr)), ptr)
}

func encodeInt64(ptr unsafe.Pointer, value int64) {
	util.Store[uint64](BSWAP64(uint64(value)), ptr)
	util.Store[uint8](FlipSign(util.Load[uint8](ptr)), ptr)
}

func encodeUint32(ptr unsafe.Pointer, value uint32) {
	util.Store[uint32](BSWAP32(value), ptr)
}

func encodeUint64(ptr unsafe.Pointer, value uint64) {
	util.Store[uint64](BSWAP64(value), ptr)
}

// encodeFloat32 reinterprets the float bits so unsigned byte order matches
// numeric order: positive values get the sign bit set, negative values are
// fully inverted. NaN is pinned above every ordinary value.
func encodeFloat32(ptr unsafe.Pointer, value float32) {
	var bits uint32
	if value != value {
		bits = math.MaxUint32
	} else {
		bits = math.Float32bits(value)
		if bits&(1<<31) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 31
		}
	}
	util.Store[uint32](BSWAP32(bits), ptr)
}

func encodeFloat64(ptr unsafe.Pointer, value float64) {
	var bits uint64
	if value != value {
		bits = math.MaxUint64
	} else {
		bits = math.Float64bits(value)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
	}
	util.Store[uint64](BSWAP64(bits), ptr)
}

func encodeBool(ptr unsafe.Pointer, value bool) {
	b := uint8(0)
	if value {
		b = 1
	}
	util.Store[uint8](b, ptr)
}

// encodeStringPrefix embeds the first prefixLen bytes, zero padded.
func encodeStringPrefix(ptr unsafe.Pointer, value string, prefixLen int) {
	l := min(len(value), prefixLen)
	for i := 0; i < l; i++ {
		util.Store[byte](value[i], util.PointerAdd(ptr, i))
	}
	if l < prefixLen {
		util.Memset(util.PointerAdd(ptr, l), 0, prefixLen-l)
	}
}
