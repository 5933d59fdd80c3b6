package bot

import "math/rand/v2"

// botRng is the package-level random source used by strategies that were not
// given their own. When nil, the functions below delegate to the global
// math/rand default. Arena games carry a per-game source instead, so
// concurrent workers stay reproducible under -seed.
var botRng *rand.Rand

// SeedBotRng sets a deterministic package-level random source.
func SeedBotRng(seed uint64) {
	botRng = newBotRng(seed)
}

// ResetBotRng reverts to the default (non-deterministic) global random source.
func ResetBotRng() {
	botRng = nil
}

func newBotRng(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// pick returns r, or the package-level source when r is nil. A nil result
// means the global default.
func pick(r *rand.Rand) *rand.Rand {
	if r != nil {
		return r
	}
	return botRng
}

func botFloat64(r *rand.Rand) float64 {
	if r = pick(r); r != nil {
		return r.Float64()
	}
	return rand.Float64()
}

func botIntn(r *rand.Rand, n int) int {
	if r = pick(r); r != nil {
		return r.IntN(n)
	}
	return rand.IntN(n)
}

func botPerm(r *rand.Rand, n int) []int {
	if r = pick(r); r != nil {
		return r.Perm(n)
	}
	return rand.Perm(n)
}
