// Package wire packs and unpacks the little-endian integer fields the DFU
// protocol's opcode payloads are built from. It is a thin, named layer
// over encoding/binary.LittleEndian so call sites read in terms of
// protocol fields rather than raw byte slicing.
package wire

import "encoding/binary"

// AppendUint16 appends v to dst in little-endian order.
func AppendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

// AppendUint32 appends v to dst in little-endian order.
func AppendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// Uint16 reads a little-endian uint16 from the start of b.
func Uint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads a little-endian uint32 from the start of b.
func Uint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
