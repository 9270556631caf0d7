// Package snapshot persists document embeddings so an unchanged corpus is
// not re-embedded after a restart.
package snapshot

import (
	"encoding/binary"
	"errors"
	"math"
)

var errCorrupt = errors.New("corrupt snapshot")

// encode lays vectors out as count, dimension, then little-endian float64s.
func encode(vectors [][]float64) ([]byte, error) {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	buf := make([]byte, 8, 8+8*dim*len(vectors))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))
	for _, v := range vectors {
		if len(v) != dim {
			return nil, errors.New("vectors have mixed dimensions")
		}
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}
	return buf, nil
}

func decode(data []byte) ([][]float64, error) {
	if len(data) < 8 {
		return nil, errCorrupt
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	body := data[8:]
	if len(body) != 8*n*dim {
		return nil, errCorrupt
	}
	vectors := make([][]float64, n)
	for i := range vectors {
		v := make([]float64, dim)
		for j := range v {
			off := 8 * (i*dim + j)
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
		}
		vectors[i] = v
	}
	return vectors, nil
}
