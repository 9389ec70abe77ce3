// Package nn implements the small fully connected network the
// benchmark trains: ReLU hidden layers, a linear output layer, mean
// softmax cross-entropy loss with full backprop gradients, and plain
// SGD updates. All math is dense gonum matrices with one example per
// row.
package nn

import (
	"math"
	mrand "math/rand"

	"gonum.org/v1/gonum/mat"
)

// Config describes the network shape.
type Config struct {
	NumLayers int // hidden layers
	InputDim  int
	HiddenDim int
	OutputDim int
}

// MLP is a multilayer perceptron. Weights for layer i have shape
// in x out; inputs are batches with one example per row.
type MLP struct {
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// Gradients holds per-layer parameter gradients in layer order,
// shaped like the parameters they correspond to.
type Gradients struct {
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

// NewMLP builds a freshly initialized network, drawing weights and
// biases uniformly from ±1/sqrt(fan-in) using the supplied generator.
// Passing the generator explicitly keeps initialization reproducible
// without touching global rand state.
func NewMLP(cfg Config, rng *mrand.Rand) *MLP {
	sizes := make([]int, 0, cfg.NumLayers+2)
	sizes = append(sizes, cfg.InputDim)

	for i := 0; i < cfg.NumLayers; i++ {
		sizes = append(sizes, cfg.HiddenDim)
	}

	sizes = append(sizes, cfg.OutputDim)

	m := &MLP{
		weights: make([]*mat.Dense, 0, len(sizes)-1),
		biases:  make([]*mat.VecDense, 0, len(sizes)-1),
	}

	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		scale := 1 / math.Sqrt(float64(in))

		w := mat.NewDense(in, out, nil)
		for r := 0; r < in; r++ {
			for c := 0; c < out; c++ {
				w.Set(r, c, (2*rng.Float64()-1)*scale)
			}
		}

		b := mat.NewVecDense(out, nil)
		for c := 0; c < out; c++ {
			b.SetVec(c, (2*rng.Float64()-1)*scale)
		}

		m.weights = append(m.weights, w)
		m.biases = append(m.biases, b)
	}

	return m
}

// Forward returns output logits for a batch of inputs.
func (m *MLP) Forward(x *mat.Dense) *mat.Dense {
	a := x

	for i, w := range m.weights {
		z := affine(a, w, m.biases[i])

		if i < len(m.weights)-1 {
			reluInPlace(z)
		}

		a = z
	}

	return a
}

// LossAndGrad runs a forward pass over the batch, computes the mean
// softmax cross-entropy against the integer labels, and backpropagates
// gradients for every parameter. labels must have one entry per input
// row.
func (m *MLP) LossAndGrad(x *mat.Dense, labels []int) (float64, *Gradients) {
	n, _ := x.Dims()

	// Forward, keeping post-activation values for the backward pass.
	acts := make([]*mat.Dense, 0, len(m.weights)+1)
	acts = append(acts, x)

	for i, w := range m.weights {
		z := affine(acts[i], w, m.biases[i])

		if i < len(m.weights)-1 {
			reluInPlace(z)
		}

		acts = append(acts, z)
	}

	logits := acts[len(acts)-1]
	_, outDim := logits.Dims()

	// Softmax probabilities and the output-layer delta (p - onehot)/n
	// in one pass, accumulating the loss as we go.
	delta := mat.NewDense(n, outDim, nil)
	loss := 0.0

	for r := 0; r < n; r++ {
		maxv := logits.At(r, 0)
		for c := 1; c < outDim; c++ {
			if v := logits.At(r, c); v > maxv {
				maxv = v
			}
		}

		sum := 0.0
		for c := 0; c < outDim; c++ {
			e := math.Exp(logits.At(r, c) - maxv)
			delta.Set(r, c, e)
			sum += e
		}

		for c := 0; c < outDim; c++ {
			p := delta.At(r, c) / sum
			d := p

			if c == labels[r] {
				d -= 1
				loss -= math.Log(math.Max(p, 1e-15))
			}

			delta.Set(r, c, d/float64(n))
		}
	}

	loss /= float64(n)

	g := &Gradients{
		Weights: make([]*mat.Dense, len(m.weights)),
		Biases:  make([]*mat.VecDense, len(m.weights)),
	}

	for i := len(m.weights) - 1; i >= 0; i-- {
		var gw mat.Dense
		gw.Mul(acts[i].T(), delta)
		g.Weights[i] = &gw
		g.Biases[i] = colSums(delta)

		if i == 0 {
			break
		}

		var da mat.Dense
		da.Mul(delta, m.weights[i].T())

		// Hidden activations are post-ReLU, so the mask is a>0.
		rows, cols := da.Dims()
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if acts[i].At(r, c) <= 0 {
					da.Set(r, c, 0)
				}
			}
		}

		delta = &da
	}

	return loss, g
}

// Evaluate returns the argmax classification accuracy of m over the
// given examples.
func (m *MLP) Evaluate(x *mat.Dense, labels []int) float64 {
	logits := m.Forward(x)
	n, outDim := logits.Dims()

	correct := 0

	for r := 0; r < n; r++ {
		best := 0
		for c := 1; c < outDim; c++ {
			if logits.At(r, c) > logits.At(r, best) {
				best = c
			}
		}

		if best == labels[r] {
			correct++
		}
	}

	return float64(correct) / float64(n)
}

// SGD applies plain stochastic gradient descent steps.
type SGD struct {
	LearningRate float64
}

// Update applies one gradient step to m in place.
func (o *SGD) Update(m *MLP, g *Gradients) {
	for i, w := range m.weights {
		var step mat.Dense
		step.Scale(o.LearningRate, g.Weights[i])
		w.Sub(w, &step)

		b := m.biases[i]
		gb := g.Biases[i]

		for c := 0; c < b.Len(); c++ {
			b.SetVec(c, b.AtVec(c)-o.LearningRate*gb.AtVec(c))
		}
	}
}

// affine computes x*w + b with b broadcast across rows.
func affine(x, w *mat.Dense, b *mat.VecDense) *mat.Dense {
	var z mat.Dense
	z.Mul(x, w)

	rows, cols := z.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			z.Set(r, c, z.At(r, c)+b.AtVec(c))
		}
	}

	return &z
}

func reluInPlace(z *mat.Dense) {
	rows, cols := z.Dims()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if z.At(r, c) < 0 {
				z.Set(r, c, 0)
			}
		}
	}
}

func colSums(m *mat.Dense) *mat.VecDense {
	rows, cols := m.Dims()
	out := mat.NewVecDense(cols, nil)

	for c := 0; c < cols; c++ {
		sum := 0.0
		for r := 0; r < rows; r++ {
			sum += m.At(r, c)
		}

		out.SetVec(c, sum)
	}

	return out
}
