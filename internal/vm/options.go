package vm

import "math/rand/v2"

// Option configures a machine.
type Option func(*Machine)

// WithTrace enables building a disassembly listing of the program memory on every cycle.
func WithTrace(enabled bool) Option {
	return func(m *Machine) {
		m.trace = enabled
	}
}

// WithRandom sets the source of random bytes used by the RND instruction.
func WithRandom(random func() uint8) Option {
	return func(m *Machine) {
		m.random = random
	}
}

// WithSeed uses a deterministic random source initialized with the given seed.
func WithSeed(seed uint64) Option {
	return func(m *Machine) {
		rng := rand.New(rand.NewPCG(seed, seed))
		m.random = func() uint8 {
			return uint8(rng.UintN(256))
		}
	}
}

func defaultRandom() uint8 {
	return uint8(rand.UintN(256))
}
