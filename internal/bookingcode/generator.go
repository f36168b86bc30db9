// Package bookingcode assigns the short customer-facing booking code.
package bookingcode

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
)

const (
	Prefix = "RH-"
	Digits = 6

	space = 1_000_000 // 10^Digits

	DefaultMaxAttempts = 1000
)

// ErrExhausted means no free code was found within MaxAttempts draws. With a
// 10^6 code space this points at a full store or a broken existence check.
var ErrExhausted = errors.New("booking code space exhausted")

var pattern = regexp.MustCompile(`^RH-\d{6}$`)

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	MaxAttempts int

	intn func(n int) int
}

// New returns a generator drawing uniformly from math/rand.
func New(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{MaxAttempts: maxAttempts, intn: rand.Intn}
}

// NewWithRand is New with a caller-supplied source returning values in [0, n).
func NewWithRand(maxAttempts int, intn func(n int) int) *Generator {
	g := New(maxAttempts)
	g.intn = intn
	return g
}

// Candidate draws one code; leading zeros are kept.
func (g *Generator) Candidate() string {
	return fmt.Sprintf("%s%0*d", Prefix, Digits, g.intn(space))
}

// Generate draws candidates until exists reports one as free.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for i := 0; i < g.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.Candidate()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.MaxAttempts)
}

// Valid reports whether s has the RH-###### shape.
func Valid(s string) bool { return pattern.MatchString(s) }
