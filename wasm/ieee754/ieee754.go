// Package ieee754 decodes the raw little-endian bit patterns the
// WebAssembly binary format uses for float literals.
package ieee754

import (
	"encoding/binary"
	"io"
	"math"
)

func DecodeFloat32(buf []byte) (float32, error) {
	if len(buf) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	raw := binary.LittleEndian.Uint32(buf)
	return math.Float32frombits(raw), nil
}

func DecodeFloat64(buf []byte) (float64, error) {
	if len(buf) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	raw := binary.LittleEndian.Uint64(buf)
	return math.Float64frombits(raw), nil
}
