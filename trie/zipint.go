package trie

import (
	"math"
	"math/bits"
)

// ZipUint64 is the shortest little-endian form of v; zero is empty.
func ZipUint64(v uint64) []byte {
	ret := make([]byte, 0, 8)
	for ; v != 0; v >>= 8 {
		ret = append(ret, byte(v))
	}
	return ret
}

func UnzipUint64(zip []byte) (v uint64) {
	for i, b := range zip {
		v |= uint64(b) << (8 * i)
	}
	return
}

// ZigZagInt64 folds the sign into the low bit so small magnitudes of
// either sign zip short.
func ZigZagInt64(i int64) uint64 {
	return uint64(i<<1) ^ uint64(i>>63)
}

func ZagZigUint64(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func ZipInt64(v int64) []byte {
	return ZipUint64(ZigZagInt64(v))
}

func UnzipInt64(zip []byte) int64 {
	return ZagZigUint64(UnzipUint64(zip))
}

// ZipFloat64 zips the bit-reversed IEEE form: round numbers keep their
// set bits near the top, so reversed they zip short.
func ZipFloat64(f float64) []byte {
	return ZipUint64(bits.Reverse64(math.Float64bits(f)))
}

func UnzipFloat64(zip []byte) float64 {
	return math.Float64frombits(bits.Reverse64(UnzipUint64(zip)))
}
