package models

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Image is one catalog item. Price and quantity are mutable by the owner;
// the embedding is computed once on upload.
type Image struct {
	ID         string
	OwnerID    string
	Name       string
	PriceCents int64
	Quantity   int
	Tags       []TagID
	Embedding  []float32
	CreatedAt  time.Time
}

// EncodeEmbedding serializes a feature vector for storage as a byte column:
// little-endian float32s, fixed length.
func EncodeEmbedding(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// DecodeEmbedding is the inverse of EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}
