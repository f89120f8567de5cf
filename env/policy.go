package env

import (
	"math/rand/v2"

	"github.com/cameronangliss/poke-env/battle"
)

// RandomAction samples a uniformly random legal action for the battle's
// current decision point, falling back to the default action when nothing is
// legal (e.g. a wait beat slipped through).
func RandomAction(b *battle.Battle, rng *rand.Rand) Action {
	if b.Format.Doubles {
		return randomDoublesAction(b, rng)
	}
	candidates := make([]int, 0, SinglesActionSize(b.Format))
	for a := 0; a < SinglesActionSize(b.Format); a++ {
		if _, err := singlesDecode(a, b, false); err == nil {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return Action{-2}
	}
	return Action{candidates[rng.IntN(len(candidates))]}
}

func randomDoublesAction(b *battle.Battle, rng *rand.Rand) Action {
	size := DoublesActionSize(b.Format)
	var first, second []int
	for a := 0; a < size; a++ {
		if _, err := doublesDecodeSlot(a, b, false, 0); err == nil {
			first = append(first, a)
		}
		if _, err := doublesDecodeSlot(a, b, false, 1); err == nil {
			second = append(second, a)
		}
	}
	if len(first) == 0 || len(second) == 0 {
		return Action{-2, -2}
	}
	// rejection-sample around incompatible pairs
	for tries := 0; tries < 32; tries++ {
		pair := [2]int{first[rng.IntN(len(first))], second[rng.IntN(len(second))]}
		if _, err := doublesDecode(pair, b, false); err == nil {
			return Action{pair[0], pair[1]}
		}
	}
	return Action{-2, -2}
}
