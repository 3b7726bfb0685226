package shortener

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/sqids/sqids-go"
)

// Alphabet is the set of characters short codes are drawn from.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultCodeLength is the length of randomly generated codes.
const DefaultCodeLength = 8

// CodeGenerator produces candidate short codes. Uniqueness is verified against the store.
type CodeGenerator func() string

// NewNanoidGenerator returns a generator of random fixed-length codes over Alphabet.
func NewNanoidGenerator(length int) (CodeGenerator, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("create nanoid generator: %w", err)
	}

	return CodeGenerator(gen), nil
}

// CounterGenerator encodes a monotonically increasing counter with sqids.
// The counter is seeded from the clock so restarts do not replay earlier codes.
type CounterGenerator struct {
	encoder *sqids.Sqids
	counter atomic.Uint64
}

// NewCounterGenerator creates a counter generator producing codes of at least minLength characters.
func NewCounterGenerator(minLength int) (*CounterGenerator, error) {
	encoder, err := sqids.New(sqids.Options{
		Alphabet:  Alphabet,
		MinLength: uint8(min(max(minLength, 0), 255)), //nolint:gosec // bounded above
	})
	if err != nil {
		return nil, fmt.Errorf("create sqids encoder: %w", err)
	}

	g := &CounterGenerator{encoder: encoder}
	g.counter.Store(uint64(time.Now().UnixMilli())) //nolint:gosec // clock is positive

	return g, nil
}

// Generate returns the code for the next counter value.
func (g *CounterGenerator) Generate() string {
	n := g.counter.Add(1)

	code, err := g.encoder.Encode([]uint64{n})
	if err != nil {
		return strconv.FormatUint(n, 36)
	}

	return code
}
