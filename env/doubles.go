package env

import (
	"github.com/cameronangliss/poke-env/battle"
)

// Doubles action encoding, a length-2 vector with each element decoded
// independently:
//
//	element = -2: default (no-op)
//	element = -1: forfeit (either slot forfeits the whole battle)
//	element = 0: pass
//	1 <= element <= 6: switch to team slot element-1
//	element >= 7: move, where
//	    move index = (element-7) % 20 / 5
//	    target    = (element-7) % 5 - 2
//	    gimmick   = (element-7) / 20
//
// so element = 1 + 6 + 5*move + (target+2) + 20*gimmick.

const (
	numTargets       = 5
	doublesMoveBase  = 1 + numSwitches
	doublesGimmickSz = numMoves * numTargets
)

// DoublesActionSize returns the per-slot action space size for a format.
func DoublesActionSize(f battle.Format) int {
	return 1 + numSwitches + doublesGimmickSz*(f.GimmickCount()+1)
}

// DoublesActionToOrder decodes a two-element action vector into an order for
// a doubles battle.
func DoublesActionToOrder(action [2]int, b *battle.Battle, fake bool, strict bool) (Order, error) {
	order, err := doublesDecode(action, b, fake)
	if err != nil {
		if strict {
			return nil, err
		}
		return DefaultOrder{}, nil
	}
	return order, nil
}

func doublesDecode(action [2]int, b *battle.Battle, fake bool) (Order, error) {
	if action[0] == -1 || action[1] == -1 {
		return ForfeitOrder{}, nil
	}
	if !fake && ambiguousDoubleSwitch(b) && inSwitchRange(action[0]) && inSwitchRange(action[1]) {
		return nil, &InvalidActionError{
			Player: b.Username, Tag: b.Tag, Action: action[0],
			Reason: "both slots must switch but only one switch-in remains",
		}
	}

	first, err := doublesDecodeSlot(action[0], b, fake, 0)
	if err != nil {
		return nil, err
	}
	second, err := doublesDecodeSlot(action[1], b, fake, 1)
	if err != nil {
		return nil, err
	}
	if first == nil && second == nil {
		return DefaultOrder{}, nil
	}
	if !fake && !compatibleOrders(first, second) {
		return nil, &InvalidActionError{
			Player: b.Username, Tag: b.Tag, Action: action[0],
			Reason: "converted slot orders are incompatible",
		}
	}
	return DoubleOrder{First: first, Second: second}, nil
}

// doublesDecodeSlot decodes one element. A nil order is a pass; a -2 element
// also decodes to nil so a partial default never blocks its partner slot.
func doublesDecodeSlot(action int, b *battle.Battle, fake bool, pos int) (*SingleOrder, error) {
	fail := func(reason string) error {
		return &InvalidActionError{Player: b.Username, Tag: b.Tag, Position: pos, Action: action, Reason: reason}
	}

	switch {
	case action == -2 || action == 0:
		return nil, nil
	case action < 0:
		return nil, fail("action is below the encodable range")
	}

	if action <= numSwitches {
		team := b.Team()
		if action-1 >= len(team) {
			return nil, fail("switch slot does not exist in the team")
		}
		mon := team[action-1]
		if !fake && !switchLegal(mon, b) {
			return nil, fail("switch target is not in the available switches")
		}
		return &SingleOrder{Switch: mon}, nil
	}

	if action >= DoublesActionSize(b.Format) {
		return nil, fail("action is beyond this format's action space")
	}

	if !fake && pos < len(b.ForceSwitch) && b.ForceSwitch[pos] {
		return nil, fail("a switch is forced but the action specifies a move")
	}
	active := b.ActivePokemon(pos)
	if active == nil {
		return nil, fail("action specifies a move but no pokemon is active in the slot")
	}

	rel := action - doublesMoveBase
	moveIdx := rel % doublesGimmickSz / numTargets
	target := rel%numTargets - 2
	gimmick := rel / doublesGimmickSz

	mvs, forced := moveList(b, pos)
	if forced && gimmick > 0 {
		return nil, fail("gimmicks are not allowed while a move is forced")
	}
	if moveIdx >= len(mvs) {
		return nil, fail("move index is out of bounds for the revealed moveset")
	}
	order := singleOrderFor(mvs[moveIdx], gimmick, target)
	if !fake {
		if err := checkDoublesMove(*order, b, pos, fail); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// DoublesOrderToAction encodes an order back into the action vector.
func DoublesOrderToAction(order Order, b *battle.Battle, fake bool, strict bool) ([2]int, error) {
	action, err := doublesEncode(order, b, fake)
	if err != nil {
		if strict {
			return [2]int{-2, -2}, err
		}
		return [2]int{-2, -2}, nil
	}
	return action, nil
}

func doublesEncode(order Order, b *battle.Battle, fake bool) ([2]int, error) {
	none := [2]int{-2, -2}
	switch o := order.(type) {
	case DefaultOrder:
		return none, nil
	case ForfeitOrder:
		return [2]int{-1, -1}, nil
	case DoubleOrder:
		if !fake && ambiguousDoubleSwitch(b) &&
			o.First != nil && o.First.Switch != nil &&
			o.Second != nil && o.Second.Switch != nil {
			return none, &InvalidActionError{
				Player: b.Username, Tag: b.Tag,
				Reason: "both slots switch but only one switch-in remains",
			}
		}
		first, err := doublesEncodeSlot(o.First, b, fake, 0)
		if err != nil {
			return none, err
		}
		second, err := doublesEncodeSlot(o.Second, b, fake, 1)
		if err != nil {
			return none, err
		}
		return [2]int{first, second}, nil
	default:
		return none, &InvalidActionError{
			Player: b.Username, Tag: b.Tag,
			Reason: "order kind is not encodable for doubles",
		}
	}
}

func doublesEncodeSlot(o *SingleOrder, b *battle.Battle, fake bool, pos int) (int, error) {
	fail := func(reason string) error {
		return &InvalidActionError{Player: b.Username, Tag: b.Tag, Position: pos, Action: -2, Reason: reason}
	}

	if o == nil {
		return 0, nil
	}
	if o.Switch != nil {
		if !fake && !switchLegal(o.Switch, b) {
			return -2, fail("switch target is not in the available switches")
		}
		for i, mon := range b.Team() {
			if battle.ToID(mon.Species) == battle.ToID(o.Switch.Species) {
				return i + 1, nil
			}
		}
		return -2, fail("switch target is not in the team")
	}
	if o.Move == nil {
		return -2, fail("order carries neither a move nor a switch")
	}
	if !fake && pos < len(b.ForceSwitch) && b.ForceSwitch[pos] {
		return -2, fail("a switch is forced but the order specifies a move")
	}
	mvs, forced := moveList(b, pos)
	gimmick := o.gimmickTier()
	if forced && gimmick > 0 {
		return -2, fail("gimmicks are not allowed while a move is forced")
	}
	if !fake {
		if err := checkDoublesMove(*o, b, pos, fail); err != nil {
			return -2, err
		}
	}
	for i, m := range mvs {
		if m.ID == o.Move.ID {
			return doublesMoveBase + numTargets*i + (o.MoveTarget + 2) + doublesGimmickSz*gimmick, nil
		}
	}
	return -2, fail("move is not in the revealed moveset")
}

// ambiguousDoubleSwitch reports the doubles corner case where both slots are
// simultaneously forced to switch with a single switch-in left on the bench:
// any double switch is then unsatisfiable and rejected up front.
func ambiguousDoubleSwitch(b *battle.Battle) bool {
	return len(b.AvailableSwitches) == 1 &&
		len(b.ForceSwitch) == 2 && b.ForceSwitch[0] && b.ForceSwitch[1]
}

func inSwitchRange(action int) bool {
	return action >= 1 && action <= numSwitches
}

// compatibleOrders rejects slot pairs that can never be executed together,
// e.g. both slots switching into the same pokemon.
func compatibleOrders(first, second *SingleOrder) bool {
	if first == nil || second == nil {
		return true
	}
	if first.Switch != nil && second.Switch != nil &&
		battle.ToID(first.Switch.Species) == battle.ToID(second.Switch.Species) {
		return false
	}
	// a one-shot gimmick cannot fire from both slots in the same turn
	if first.Move != nil && second.Move != nil {
		if first.gimmickTier() != 0 && first.gimmickTier() == second.gimmickTier() {
			return false
		}
	}
	return true
}

func checkDoublesMove(o SingleOrder, b *battle.Battle, pos int, fail func(string) error) error {
	if o.MoveTarget < -2 || o.MoveTarget > 2 {
		return fail("move target is outside [-2, 2]")
	}
	found := false
	if pos < len(b.AvailableMoves) {
		for _, m := range b.AvailableMoves[pos] {
			if m.ID == o.Move.ID {
				found = true
				break
			}
		}
	}
	if !found {
		return fail("move is not in the available moves")
	}
	if o.Mega && !b.CanMega[pos] {
		return fail("mega evolution is not available this turn")
	}
	if o.ZMove && !b.CanZMove[pos] {
		return fail("z-move is not available this turn")
	}
	if o.Dynamax && !b.CanDynamax[pos] {
		return fail("dynamax is not available this turn")
	}
	if o.Tera && b.CanTera[pos] == "" {
		return fail("terastallization is not available this turn")
	}
	return nil
}
