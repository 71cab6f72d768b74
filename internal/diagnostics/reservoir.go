package diagnostics

import "math/rand/v2"

// reservoir keeps a uniform sample of at most size values from a stream
type reservoir struct {
	size   int
	seen   int
	values []float64
	rng    *rand.Rand
}

func newReservoir(size int, seed uint64) *reservoir {
	return &reservoir{
		size: size,
		rng:  rand.New(rand.NewPCG(seed, seed)),
	}
}

func (r *reservoir) add(v float64) {
	r.seen++
	if len(r.values) < r.size {
		r.values = append(r.values, v)
		return
	}
	if j := r.rng.IntN(r.seen); j < r.size {
		r.values[j] = v
	}
}
