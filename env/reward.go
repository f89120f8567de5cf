package env

import (
	"github.com/cameronangliss/poke-env/battle"
	"github.com/samber/lo"
)

// RewardHelper scores a battle state and returns the delta against the last
// value seen for the same battle, so an unchanged state always scores 0.
// Unrevealed opposing team members count as full-health opponents, which
// keeps the valuation symmetric while the opponent's roster is only lazily
// known.
func (e *Env) RewardHelper(b *battle.Battle) float64 {
	cfg := e.rewards
	prev, ok := e.rewardBuffer[b.Tag]
	if !ok {
		prev = 0
	}

	current := lo.SumBy(b.Team(), func(mon *battle.Pokemon) float64 {
		v := mon.HPFraction() * cfg.HPValue
		if mon.Fainted {
			v -= cfg.FaintedValue
		} else if mon.Status != "" {
			v -= cfg.StatusValue
		}
		return v
	})
	current += float64(cfg.NumberOfMons-len(b.Team())) * cfg.HPValue

	current -= lo.SumBy(b.OpponentTeam(), func(mon *battle.Pokemon) float64 {
		v := mon.HPFraction() * cfg.HPValue
		if mon.Fainted {
			v -= cfg.FaintedValue
		} else if mon.Status != "" {
			v -= cfg.StatusValue
		}
		return v
	})
	current -= float64(cfg.NumberOfMons-len(b.OpponentTeam())) * cfg.HPValue

	if b.Won {
		current += cfg.VictoryValue
	} else if b.Lost {
		current -= cfg.VictoryValue
	}

	e.rewardBuffer[b.Tag] = current
	return current - prev
}
