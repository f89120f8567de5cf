package env

import (
	"github.com/cameronangliss/poke-env/battle"
)

// Singles action encoding, one integer per decision point:
//
//	action = -2: default
//	action = -1: forfeit
//	0 <= action <= 5: switch to team slot
//	6 <= action <= 9: move
//	10 <= action <= 13: move + mega evolve
//	14 <= action <= 17: move + z-move
//	18 <= action <= 21: move + dynamax
//	22 <= action <= 25: move + terastallize
//
// Gimmick tiers beyond the format's generation do not exist in its action
// space: the space has 6 + 4*(gimmicks+1) entries.

const (
	numSwitches = 6
	numMoves    = 4
)

// SinglesActionSize returns the size of the singles action space for a
// format.
func SinglesActionSize(f battle.Format) int {
	return numSwitches + numMoves*(f.GimmickCount()+1)
}

// SinglesActionToOrder decodes an action into a structured order for a
// singles battle. With fake set, legality checking is skipped entirely. With
// strict set, an illegal action returns an *InvalidActionError; otherwise
// every failure collapses into DefaultOrder.
func SinglesActionToOrder(action int, b *battle.Battle, fake bool, strict bool) (Order, error) {
	order, err := singlesDecode(action, b, fake)
	if err != nil {
		if strict {
			return nil, err
		}
		return DefaultOrder{}, nil
	}
	return order, nil
}

func singlesDecode(action int, b *battle.Battle, fake bool) (Order, error) {
	fail := func(reason string) error {
		return &InvalidActionError{Player: b.Username, Tag: b.Tag, Action: action, Reason: reason}
	}

	switch {
	case action == -2:
		return DefaultOrder{}, nil
	case action == -1:
		return ForfeitOrder{}, nil
	case action < -2:
		return nil, fail("action is below the encodable range")
	}

	if action < numSwitches {
		team := b.Team()
		if action >= len(team) {
			return nil, fail("switch slot does not exist in the team")
		}
		order := SingleOrder{Switch: team[action]}
		if !fake && !switchLegal(team[action], b) {
			return nil, fail("switch target is not in the available switches")
		}
		return order, nil
	}

	if action >= SinglesActionSize(b.Format) {
		return nil, fail("action is beyond this format's action space")
	}

	gimmick := (action - numSwitches) / numMoves
	moveIdx := (action - numSwitches) % numMoves

	active := b.Active()
	if active == nil {
		return nil, fail("action specifies a move but no pokemon is active")
	}
	mvs, forced := moveList(b, 0)
	if forced && gimmick > 0 {
		// struggle/recharge is a synthetic one-off; no gimmick rides on it
		return nil, fail("gimmicks are not allowed while a move is forced")
	}
	if moveIdx >= len(mvs) {
		return nil, fail("move index is out of bounds for the revealed moveset")
	}
	order := *singleOrderFor(mvs[moveIdx], gimmick, 0)
	if !fake {
		if err := checkSinglesMove(order, b, fail); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// SinglesOrderToAction is the encoding direction: defined for every
// decodable order and round-tripping through the same tier arithmetic. Move
// identity is matched by id, not pointer, so orders built against a
// reconstructed battle copy still encode.
func SinglesOrderToAction(order Order, b *battle.Battle, fake bool, strict bool) (int, error) {
	action, err := singlesEncode(order, b, fake)
	if err != nil {
		if strict {
			return -2, err
		}
		return -2, nil
	}
	return action, nil
}

func singlesEncode(order Order, b *battle.Battle, fake bool) (int, error) {
	fail := func(reason string) error {
		return &InvalidActionError{Player: b.Username, Tag: b.Tag, Action: -2, Reason: reason}
	}

	switch o := order.(type) {
	case DefaultOrder:
		return -2, nil
	case ForfeitOrder:
		return -1, nil
	case SingleOrder:
		if o.Switch != nil {
			if !fake && !switchLegal(o.Switch, b) {
				return -2, fail("switch target is not in the available switches")
			}
			for i, mon := range b.Team() {
				if battle.ToID(mon.Species) == battle.ToID(o.Switch.Species) {
					return i, nil
				}
			}
			return -2, fail("switch target is not in the team")
		}
		if o.Move == nil {
			return -2, fail("order carries neither a move nor a switch")
		}
		mvs, forced := moveList(b, 0)
		gimmick := o.gimmickTier()
		if forced && gimmick > 0 {
			return -2, fail("gimmicks are not allowed while a move is forced")
		}
		if !fake {
			if err := checkSinglesMove(o, b, fail); err != nil {
				return -2, err
			}
		}
		for i, m := range mvs {
			if m.ID == o.Move.ID {
				return numSwitches + numMoves*gimmick + i, nil
			}
		}
		return -2, fail("move is not in the revealed moveset")
	case DoubleOrder:
		return -2, fail("doubles order in a singles battle")
	default:
		return -2, fail("unknown order kind")
	}
}

// moveList resolves the list a move index counts against: the forced
// singleton when the only available move is struggle or recharge, otherwise
// the active pokemon's full revealed moveset in insertion order.
func moveList(b *battle.Battle, pos int) (moves []battle.Move, forced bool) {
	avail := []battle.Move{}
	if pos < len(b.AvailableMoves) {
		avail = b.AvailableMoves[pos]
	}
	if len(avail) == 1 && (avail[0].ID == "struggle" || avail[0].ID == "recharge") {
		return avail, true
	}
	active := b.ActivePokemon(pos)
	if active == nil {
		return nil, false
	}
	return active.Moves, false
}

func switchLegal(mon *battle.Pokemon, b *battle.Battle) bool {
	for _, p := range b.AvailableSwitches {
		if battle.ToID(p.Species) == battle.ToID(mon.Species) {
			return true
		}
	}
	return false
}

func checkSinglesMove(o SingleOrder, b *battle.Battle, fail func(string) error) error {
	if len(b.ForceSwitch) > 0 && b.ForceSwitch[0] {
		return fail("a switch is forced but the action specifies a move")
	}
	found := false
	for _, m := range b.AvailableMoves[0] {
		if m.ID == o.Move.ID {
			found = true
			break
		}
	}
	if !found {
		return fail("move is not in the available moves")
	}
	if o.Mega && !b.CanMega[0] {
		return fail("mega evolution is not available this turn")
	}
	if o.ZMove && !b.CanZMove[0] {
		return fail("z-move is not available this turn")
	}
	if o.Dynamax && !b.CanDynamax[0] {
		return fail("dynamax is not available this turn")
	}
	if o.Tera && b.CanTera[0] == "" {
		return fail("terastallization is not available this turn")
	}
	return nil
}
