package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Vector artifact layout (little endian):
//
//	0..7    magic "SPIDXV01"
//	8..15   dim   uint64
//	16..23  count uint64
//	24..    count*dim float32
var vectorMagic = [8]byte{'S', 'P', 'I', 'D', 'X', 'V', '0', '1'}

const vectorHeaderSize = 24

func encodeVectors(dim int, vectors [][]float32) []byte {
	buf := make([]byte, vectorHeaderSize+4*dim*len(vectors))
	copy(buf[:8], vectorMagic[:])
	binary.LittleEndian.PutUint64(buf[8:16], uint64(dim))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(vectors)))

	off := vectorHeaderSize
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

func decodeVectors(buf []byte) (int, [][]float32, error) {
	if len(buf) < vectorHeaderSize {
		return 0, nil, errors.New("vector artifact shorter than header")
	}
	var magic [8]byte
	copy(magic[:], buf[:8])
	if magic != vectorMagic {
		return 0, nil, errors.New("vector artifact magic mismatch")
	}

	dim := binary.LittleEndian.Uint64(buf[8:16])
	count := binary.LittleEndian.Uint64(buf[16:24])
	if count > 0 && dim == 0 {
		return 0, nil, errors.New("vector artifact has zero dimension")
	}
	body := uint64(len(buf) - vectorHeaderSize)
	if body%4 != 0 || (dim != 0 && body/4/dim != count) || 4*dim*count != body {
		return 0, nil, fmt.Errorf("vector artifact size mismatch: header says %d x %d", count, dim)
	}

	vectors := make([][]float32, count)
	off := vectorHeaderSize
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		}
		vectors[i] = v
	}
	return int(dim), vectors, nil
}
