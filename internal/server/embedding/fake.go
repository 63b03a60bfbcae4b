package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// FakeEmbedder derives a deterministic vector from the image bytes alone.
// Identical inputs embed identically, so similarity tests and local
// deployments without a feature-extraction service behave predictably.
type FakeEmbedder struct {
	// Dimensions of the produced vector. Zero means 64.
	Dimensions int
}

func (f *FakeEmbedder) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	dims := f.Dimensions
	if dims == 0 {
		dims = 64
	}

	out := make([]float32, dims)
	seed := sha256.Sum256(imageData)
	block := seed[:]
	for i := range out {
		if i%8 == 0 && i > 0 {
			next := sha256.Sum256(block)
			block = next[:]
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4:])
		out[i] = float32(bits%1000) / 1000
	}
	return out, nil
}
