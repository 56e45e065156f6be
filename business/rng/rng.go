// Package rng defines the uniform random source every generator draws from.
package rng

import (
	"crypto/rand"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source draws uniformly distributed integers in [0, n). n must be positive.
type Source interface {
	Uniform(n int) int
}

type secureSource struct{}

// Secure returns a Source backed by crypto/rand. Use it wherever generated values
// must not be guessable (hostnames, ids).
func Secure() Source {
	return secureSource{}
}

func (secureSource) Uniform(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("rng: crypto/rand failed: " + err.Error())
	}
	return int(v.Int64())
}

type seededSource struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// Seeded returns a deterministic Source. Two sources with the same seed produce
// the same sequence of draws.
func Seeded(seed uint64) Source {
	return &seededSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Uniform(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Between returns an integer in [lo, hi).
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Uniform(hi-lo)
}

const floatResolution = 1 << 53

// Float64 returns a float in [0, 1].
func Float64(src Source) float64 {
	return float64(src.Uniform(floatResolution+1)) / floatResolution
}

// Bytes returns n bytes drawn from src.
func Bytes(src Source, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(src.Uniform(256))
	}
	return b
}

// Pick returns a uniformly chosen element of options. options must not be empty.
func Pick[T any](src Source, options []T) T {
	return options[src.Uniform(len(options))]
}

type reader struct {
	src Source
}

// Reader adapts src to an io.Reader, so it can feed libraries that expect one.
func Reader(src Source) io.Reader {
	return reader{src: src}
}

func (r reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.src.Uniform(256))
	}
	return len(p), nil
}
