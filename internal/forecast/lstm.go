package forecast

import (
	"math"
	"math/rand"
)

// param is a flat weight tensor with its gradient and Adam moments.
type param struct {
	val  []float64
	grad []float64
	m    []float64
	v    []float64
}

func newParam(n int) *param {
	return &param{
		val:  make([]float64, n),
		grad: make([]float64, n),
		m:    make([]float64, n),
		v:    make([]float64, n),
	}
}

func (p *param) glorot(fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range p.val {
		p.val[i] = (rng.Float64()*2 - 1) * limit
	}
}

type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
}

// step applies accumulated gradients and clears them.
func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		for i, g := range p.grad {
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
			p.val[i] -= a.lr * (p.m[i] / c1) / (math.Sqrt(p.v[i]/c2) + a.eps)
			p.grad[i] = 0
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// lstmLayer holds the four gate blocks (input, forget, cell, output) stacked
// row-wise over the concatenated [x_t, h_{t-1}] vector.
type lstmLayer struct {
	in     int
	hidden int
	w      *param
	b      *param
}

type lstmStep struct {
	z     []float64
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	cPrev []float64
	c     []float64
	tanhC []float64
	h     []float64
}

func newLSTMLayer(in, hidden int, rng *rand.Rand) *lstmLayer {
	l := &lstmLayer{
		in:     in,
		hidden: hidden,
		w:      newParam(4 * hidden * (in + hidden)),
		b:      newParam(4 * hidden),
	}
	l.w.glorot(in+hidden, 4*hidden, rng)
	for j := hidden; j < 2*hidden; j++ {
		l.b.val[j] = 1 // forget gate starts open
	}
	return l
}

func (l *lstmLayer) params() []*param { return []*param{l.w, l.b} }

func (l *lstmLayer) forward(xs [][]float64) []lstmStep {
	h := l.hidden
	cols := l.in + h
	steps := make([]lstmStep, len(xs))
	hPrev := make([]float64, h)
	cPrev := make([]float64, h)
	a := make([]float64, 4*h)
	for t, x := range xs {
		z := make([]float64, cols)
		copy(z, x)
		copy(z[l.in:], hPrev)
		for r := 0; r < 4*h; r++ {
			row := l.w.val[r*cols : (r+1)*cols]
			s := l.b.val[r]
			for k, zk := range z {
				s += row[k] * zk
			}
			a[r] = s
		}
		st := lstmStep{
			z:     z,
			i:     make([]float64, h),
			f:     make([]float64, h),
			g:     make([]float64, h),
			o:     make([]float64, h),
			cPrev: cPrev,
			c:     make([]float64, h),
			tanhC: make([]float64, h),
			h:     make([]float64, h),
		}
		for j := 0; j < h; j++ {
			st.i[j] = sigmoid(a[j])
			st.f[j] = sigmoid(a[h+j])
			st.g[j] = math.Tanh(a[2*h+j])
			st.o[j] = sigmoid(a[3*h+j])
			st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
			st.tanhC[j] = math.Tanh(st.c[j])
			st.h[j] = st.o[j] * st.tanhC[j]
		}
		steps[t] = st
		hPrev, cPrev = st.h, st.c
	}
	return steps
}

// backward runs backpropagation through time. dh[t] is the loss gradient
// flowing into h_t from above (nil when none). Gradients accumulate into the
// layer parameters; the returned slice holds the gradient for every input x_t.
func (l *lstmLayer) backward(steps []lstmStep, dh [][]float64) [][]float64 {
	h := l.hidden
	cols := l.in + h
	dx := make([][]float64, len(steps))
	dhNext := make([]float64, h)
	dcNext := make([]float64, h)
	da := make([]float64, 4*h)
	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for j := 0; j < h; j++ {
			dhj := dhNext[j]
			if dh[t] != nil {
				dhj += dh[t][j]
			}
			dc := dhj*st.o[j]*(1-st.tanhC[j]*st.tanhC[j]) + dcNext[j]
			da[j] = dc * st.g[j] * st.i[j] * (1 - st.i[j])
			da[h+j] = dc * st.cPrev[j] * st.f[j] * (1 - st.f[j])
			da[2*h+j] = dc * st.i[j] * (1 - st.g[j]*st.g[j])
			da[3*h+j] = dhj * st.tanhC[j] * st.o[j] * (1 - st.o[j])
			dcNext[j] = dc * st.f[j]
		}
		dz := make([]float64, cols)
		for r := 0; r < 4*h; r++ {
			d := da[r]
			if d == 0 {
				continue
			}
			row := l.w.val[r*cols : (r+1)*cols]
			grow := l.w.grad[r*cols : (r+1)*cols]
			for k := 0; k < cols; k++ {
				grow[k] += d * st.z[k]
				dz[k] += row[k] * d
			}
			l.b.grad[r] += d
		}
		dx[t] = dz[:l.in]
		dhNext = dz[l.in:]
	}
	return dx
}

// denseLayer is a linear fully connected layer.
type denseLayer struct {
	in  int
	out int
	w   *param
	b   *param
}

func newDenseLayer(in, out int, rng *rand.Rand) *denseLayer {
	d := &denseLayer{in: in, out: out, w: newParam(in * out), b: newParam(out)}
	d.w.glorot(in, out, rng)
	return d
}

func (d *denseLayer) params() []*param { return []*param{d.w, d.b} }

func (d *denseLayer) forward(x []float64) []float64 {
	y := make([]float64, d.out)
	for r := 0; r < d.out; r++ {
		row := d.w.val[r*d.in : (r+1)*d.in]
		s := d.b.val[r]
		for k, xk := range x {
			s += row[k] * xk
		}
		y[r] = s
	}
	return y
}

func (d *denseLayer) backward(x, dy []float64) []float64 {
	dx := make([]float64, d.in)
	for r := 0; r < d.out; r++ {
		row := d.w.val[r*d.in : (r+1)*d.in]
		grow := d.w.grad[r*d.in : (r+1)*d.in]
		for k := 0; k < d.in; k++ {
			grow[k] += dy[r] * x[k]
			dx[k] += row[k] * dy[r]
		}
		d.b.grad[r] += dy[r]
	}
	return dx
}

// lstmNetwork is LSTM -> dropout -> LSTM -> dropout -> dense -> dense(1).
type lstmNetwork struct {
	first   *lstmLayer
	second  *lstmLayer
	hidden  *denseLayer
	output  *denseLayer
	dropout float64
}

type netTrace struct {
	steps1 []lstmStep
	mask1  [][]float64
	steps2 []lstmStep
	mask2  []float64
	last   []float64
	dense  []float64
	out    float64
}

func newLSTMNetwork(inputs, units, denseUnits int, dropout float64, rng *rand.Rand) *lstmNetwork {
	return &lstmNetwork{
		first:   newLSTMLayer(inputs, units, rng),
		second:  newLSTMLayer(units, units, rng),
		hidden:  newDenseLayer(units, denseUnits, rng),
		output:  newDenseLayer(denseUnits, 1, rng),
		dropout: dropout,
	}
}

func (n *lstmNetwork) params() []*param {
	var ps []*param
	ps = append(ps, n.first.params()...)
	ps = append(ps, n.second.params()...)
	ps = append(ps, n.hidden.params()...)
	ps = append(ps, n.output.params()...)
	return ps
}

// dropMask returns an inverted-dropout mask, or nil at inference (rng == nil).
func (n *lstmNetwork) dropMask(size int, rng *rand.Rand) []float64 {
	if rng == nil || n.dropout <= 0 {
		return nil
	}
	keep := 1 - n.dropout
	mask := make([]float64, size)
	for i := range mask {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return mask
}

func applyMask(x, mask []float64) []float64 {
	if mask == nil {
		return x
	}
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * mask[i]
	}
	return out
}

func (n *lstmNetwork) forward(window [][]float64, rng *rand.Rand) *netTrace {
	tr := &netTrace{}
	tr.steps1 = n.first.forward(window)
	seq := make([][]float64, len(tr.steps1))
	tr.mask1 = make([][]float64, len(tr.steps1))
	for t, st := range tr.steps1 {
		tr.mask1[t] = n.dropMask(n.first.hidden, rng)
		seq[t] = applyMask(st.h, tr.mask1[t])
	}
	tr.steps2 = n.second.forward(seq)
	tr.mask2 = n.dropMask(n.second.hidden, rng)
	tr.last = applyMask(tr.steps2[len(tr.steps2)-1].h, tr.mask2)
	tr.dense = n.hidden.forward(tr.last)
	tr.out = n.output.forward(tr.dense)[0]
	return tr
}

func (n *lstmNetwork) backward(tr *netTrace, dOut float64) {
	dDense := n.output.backward(tr.dense, []float64{dOut})
	dLast := applyMask(n.hidden.backward(tr.last, dDense), tr.mask2)

	dh2 := make([][]float64, len(tr.steps2))
	dh2[len(dh2)-1] = dLast
	dSeq := n.second.backward(tr.steps2, dh2)
	for t := range dSeq {
		dSeq[t] = applyMask(dSeq[t], tr.mask1[t])
	}
	n.first.backward(tr.steps1, dSeq)
}

func (n *lstmNetwork) predict(window [][]float64) float64 {
	return n.forward(window, nil).out
}

// train fits the network with mini-batch Adam on mean squared error and
// returns the mean loss of the final epoch.
func (n *lstmNetwork) train(xs [][][]float64, ys []float64, epochs, batchSize int, opt *adam, rng *rand.Rand) float64 {
	params := n.params()
	var epochLoss float64
	for e := 0; e < epochs; e++ {
		epochLoss = 0
		order := rng.Perm(len(xs))
		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			size := float64(end - start)
			for _, idx := range order[start:end] {
				tr := n.forward(xs[idx], rng)
				diff := tr.out - ys[idx]
				epochLoss += diff * diff
				n.backward(tr, 2*diff/size)
			}
			opt.step(params)
		}
		epochLoss /= float64(len(xs))
	}
	return epochLoss
}
