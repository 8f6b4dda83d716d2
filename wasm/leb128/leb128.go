// Package leb128 reads and writes the variable-length integer encoding used
// by the WebAssembly binary format.
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#integers%E2%91%A4
package leb128

import (
	"errors"
	"io"
)

var (
	errOverflow32 = errors.New("overflows a 32-bit integer")
	errOverflow33 = errors.New("overflows a 33-bit integer")
	errOverflow64 = errors.New("overflows a 64-bit integer")
)

// LoadUint32 decodes an unsigned 32-bit integer from the head of buf,
// returning the value and the number of bytes read. Load functions keep no
// state, so decoding at an offset is slicing first.
func LoadUint32(buf []byte) (ret uint32, bytesRead uint64, err error) {
	const (
		uint32Mask  uint32 = 1 << 7
		uint32Mask2        = ^uint32Mask
	)
	var b uint32
	for shift := 0; shift < 35; shift += 7 {
		if bytesRead == uint64(len(buf)) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b = uint32(buf[bytesRead])
		bytesRead++
		ret |= (b & uint32Mask2) << shift
		if b&uint32Mask == 0 {
			// The fifth byte holds bits 28..31 only; anything above is out
			// of range.
			if shift == 28 && b&0xf0 != 0 {
				return 0, 0, errOverflow32
			}
			return ret, bytesRead, nil
		}
	}
	return 0, 0, errOverflow32
}

// LoadUint64 decodes an unsigned 64-bit integer from the head of buf.
func LoadUint64(buf []byte) (ret uint64, bytesRead uint64, err error) {
	const (
		uint64Mask  uint64 = 1 << 7
		uint64Mask2        = ^uint64Mask
	)
	var b uint64
	for shift := 0; shift < 70; shift += 7 {
		if bytesRead == uint64(len(buf)) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b = uint64(buf[bytesRead])
		bytesRead++
		ret |= (b & uint64Mask2) << shift
		if b&uint64Mask == 0 {
			// The tenth byte holds bit 63 only.
			if shift == 63 && b&0x7e != 0 {
				return 0, 0, errOverflow64
			}
			return ret, bytesRead, nil
		}
	}
	return 0, 0, errOverflow64
}

// LoadInt32 decodes a signed 32-bit integer from the head of buf.
func LoadInt32(buf []byte) (ret int32, bytesRead uint64, err error) {
	const (
		int32Mask  int32 = 1 << 7
		int32Mask2       = ^int32Mask
		int32Mask3       = 1 << 6
		int32Mask4 int32 = ^0
	)
	var shift int
	var b int32
	for shift < 35 {
		if bytesRead == uint64(len(buf)) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b = int32(buf[bytesRead])
		bytesRead++
		ret |= (b & int32Mask2) << shift
		shift += 7
		if b&int32Mask == 0 {
			break
		}
	}
	if shift == 35 && b&int32Mask != 0 {
		return 0, 0, errOverflow32
	}
	// In a full-length encoding the fifth byte carries the sign in bit 3 and
	// its spare bits 4..6 must agree with it.
	if shift == 35 {
		if b&0x08 != 0 {
			if b&0x70 != 0x70 {
				return 0, 0, errOverflow32
			}
		} else if b&0x70 != 0 {
			return 0, 0, errOverflow32
		}
	}
	if shift < 32 && b&int32Mask3 == int32Mask3 {
		ret |= int32Mask4 << shift
	}
	return ret, bytesRead, nil
}

// LoadInt64 decodes a signed 64-bit integer from the head of buf.
func LoadInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	const (
		int64Mask  int64 = 1 << 7
		int64Mask2       = ^int64Mask
		int64Mask3       = 1 << 6
		int64Mask4 int64 = ^0
	)
	var shift int
	var b int64
	for shift < 70 {
		if bytesRead == uint64(len(buf)) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b = int64(buf[bytesRead])
		bytesRead++
		ret |= (b & int64Mask2) << shift
		shift += 7
		if b&int64Mask == 0 {
			break
		}
	}
	if shift == 70 && b&int64Mask != 0 {
		return 0, 0, errOverflow64
	}
	// The tenth byte carries the sign in bit 0; bits 1..6 must agree.
	if shift == 70 {
		if b&0x01 != 0 {
			if b&0x7e != 0x7e {
				return 0, 0, errOverflow64
			}
		} else if b&0x7e != 0 {
			return 0, 0, errOverflow64
		}
	}
	if shift < 64 && b&int64Mask3 == int64Mask3 {
		ret |= int64Mask4 << shift
	}
	return ret, bytesRead, nil
}

// LoadInt33AsInt64 decodes a signed 33-bit integer from the head of buf into
// an int64. The binary format uses this width for block types.
func LoadInt33AsInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	const (
		int33Mask  int64 = 1 << 7
		int33Mask2       = ^int33Mask
		int33Mask3       = 1 << 6
		int33Mask4       = 8589934591 // 2^33-1
		int33Mask5       = 1 << 32
		int33Mask6       = int33Mask4 + 1 // 2^33
	)
	var shift int
	var b int64
	for shift < 35 {
		if bytesRead == uint64(len(buf)) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b = int64(buf[bytesRead])
		bytesRead++
		ret |= (b & int33Mask2) << shift
		shift += 7
		if b&int33Mask == 0 {
			break
		}
	}
	if shift == 35 && b&int33Mask != 0 {
		return 0, 0, errOverflow33
	}
	if shift < 33 && b&int33Mask3 == int33Mask3 {
		ret |= int33Mask4 << shift
	}
	ret = ret & int33Mask4

	// If the 33rd bit is set, translate to the corresponding negative value.
	if ret&int33Mask5 > 0 {
		ret = ret - int33Mask6
	}
	return ret, bytesRead, nil
}

// EncodeInt32 encodes the signed value into the minimal LEB128 buffer.
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into the minimal LEB128 buffer.
func EncodeInt64(value int64) (buf []byte) {
	for {
		b := uint8(value & 0x7f)
		value >>= 7
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// EncodeUint32 encodes the value into the minimal LEB128 buffer.
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into the minimal LEB128 buffer.
func EncodeUint64(value uint64) (buf []byte) {
	// Take 7 low-order bits at a time; the high bit of each byte tells the
	// reader whether more follow.
	for {
		b := uint8(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if b&0x80 == 0 {
			return buf
		}
	}
}
