package sample

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrPartialResult is returned when a read returns a byte count that is not a whole
// number of conversion results.
var ErrPartialResult = errors.New("partial conversion result")

// Format is the layout of one conversion result as written by the sampling engine.
type Format uint8

const (
	// FormatType1 is a 16-bit word: data in bits 0-11, channel in bits 12-15.
	FormatType1 Format = iota + 1
	// FormatType2 is a 32-bit word: data in bits 0-11, channel in bits 13-15,
	// unit in bit 16.
	FormatType2
)

// ParseFormat converts a configuration name into a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "type1":
		return FormatType1, nil
	case "type2":
		return FormatType2, nil
	}
	return 0, fmt.Errorf("unknown result format %q", name)
}

// Size returns the width of one result in bytes.
func (f Format) Size() int {
	switch f {
	case FormatType1:
		return 2
	case FormatType2:
		return 4
	}
	return 0
}

func (f Format) String() string {
	switch f {
	case FormatType1:
		return "type1"
	case FormatType2:
		return "type2"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Sample is one raw conversion result.
type Sample struct {
	Code    uint16 // Raw converter code
	Channel uint8  // Channel tag
	Unit    uint8  // Unit tag (type2 only)
}

// Put writes s into dst, which must hold at least f.Size() bytes.
func (f Format) Put(dst []byte, s Sample) {
	switch f {
	case FormatType1:
		w := uint16(s.Code&0x0FFF) | uint16(s.Channel&0x0F)<<12
		binary.LittleEndian.PutUint16(dst, w)
	case FormatType2:
		w := uint32(s.Code&0x0FFF) | uint32(s.Channel&0x07)<<13 | uint32(s.Unit&0x01)<<16
		binary.LittleEndian.PutUint32(dst, w)
	}
}

// Get reads one result from src, which must hold at least f.Size() bytes.
func (f Format) Get(src []byte) Sample {
	switch f {
	case FormatType1:
		w := binary.LittleEndian.Uint16(src)
		return Sample{Code: w & 0x0FFF, Channel: uint8(w >> 12)}
	case FormatType2:
		w := binary.LittleEndian.Uint32(src)
		return Sample{
			Code:    uint16(w & 0x0FFF),
			Channel: uint8(w>>13) & 0x07,
			Unit:    uint8(w>>16) & 0x01,
		}
	}
	return Sample{}
}

// Decode decodes raw results into dst and returns the batch.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// A byte count that is not a multiple of the result size yields ErrPartialResult.
func Decode(dst []Sample, raw []byte, f Format) ([]Sample, error) {
	size := f.Size()
	if size == 0 {
		return dst[:0], fmt.Errorf("decode: unknown format %v", f)
	}
	if len(raw)%size != 0 {
		return dst[:0], fmt.Errorf("decode %d bytes as %v: %w", len(raw), f, ErrPartialResult)
	}

	n := len(raw) / size
	if cap(dst) >= n {
		dst = dst[:n]
	} else {
		dst = make([]Sample, n)
	}

	for i := range dst {
		dst[i] = f.Get(raw[i*size:])
	}

	return dst, nil
}
