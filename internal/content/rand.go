package content

import "math/rand"

// Rand is the randomness used for content choices. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) Intn(n int) int   { return rand.Intn(n) }

// DefaultRand draws from the process-wide source, which is safe for
// concurrent use.
var DefaultRand Rand = globalRand{}
