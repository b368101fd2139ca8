package game

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// RNG draws a uniform integer in [0, n).
type RNG interface {
	Intn(n int) int
}

// CryptoRNG draws from crypto/rand.
type CryptoRNG struct{}

func (CryptoRNG) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand never fails on supported platforms
		return n / 2
	}
	return int(v.Int64())
}

// SequenceRNG replays a fixed list of draws, each reduced modulo n.
// Safe for concurrent use.
type SequenceRNG struct {
	mu    sync.Mutex
	draws []int
	pos   int
}

func NewSequenceRNG(draws ...int) *SequenceRNG {
	return &SequenceRNG{draws: draws}
}

func (s *SequenceRNG) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.draws) == 0 || n <= 0 {
		return 0
	}
	d := s.draws[s.pos%len(s.draws)]
	s.pos++
	if d < 0 {
		d = -d
	}
	return d % n
}
