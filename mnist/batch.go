package mnist

import (
	mrand "math/rand"

	"gonum.org/v1/gonum/mat"
)

// Batcher yields mini-batches covering a dataset exactly once, in an
// order drawn from the supplied generator. Create a new Batcher for
// each epoch; the permutation is fixed at construction.
type Batcher struct {
	images    *mat.Dense
	labels    []int
	perm      []int
	batchSize int
	pos       int
}

// NewBatcher creates a single-pass batcher over images and labels.
func NewBatcher(
	rng *mrand.Rand, batchSize int, images *mat.Dense, labels []int,
) *Batcher {
	return &Batcher{
		images:    images,
		labels:    labels,
		perm:      rng.Perm(len(labels)),
		batchSize: batchSize,
	}
}

// Next returns the next batch, or ok == false after the final one.
// The last batch may be smaller than the configured batch size.
func (b *Batcher) Next() (x *mat.Dense, y []int, ok bool) {
	if b.pos >= len(b.perm) {
		return nil, nil, false
	}

	end := min(b.pos+b.batchSize, len(b.perm))
	ids := b.perm[b.pos:end]
	b.pos = end

	_, cols := b.images.Dims()
	x = mat.NewDense(len(ids), cols, nil)
	y = make([]int, len(ids))

	for i, id := range ids {
		x.SetRow(i, b.images.RawRowView(id))
		y[i] = b.labels[id]
	}

	return x, y, true
}
