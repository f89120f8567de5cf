package env

import (
	"fmt"
	"strings"

	"github.com/cameronangliss/poke-env/battle"
)

// Order is the structured form of one in-battle choice. The concrete kinds
// are DefaultOrder (let the server pick), ForfeitOrder, SingleOrder (one
// slot's move or switch, with optional gimmick flags and doubles target) and
// DoubleOrder (both slots of a doubles seat). Codec logic switches over
// these exhaustively.
type Order interface {
	// Message renders the order as the choice string sent to the server,
	// without the trailing "|rqid" part.
	Message() string
}

type DefaultOrder struct{}

func (DefaultOrder) Message() string { return "/choose default" }

type ForfeitOrder struct{}

func (ForfeitOrder) Message() string { return "/forfeit" }

// SingleOrder carries either a move (with gimmick flags and, in doubles, a
// target slot) or a switch. Exactly one of Move and Switch is set.
type SingleOrder struct {
	Move   *battle.Move
	Switch *battle.Pokemon

	Mega    bool
	ZMove   bool
	Dynamax bool
	Tera    bool

	// MoveTarget is the doubles target slot in [-2, 2]; 0 means untargeted.
	MoveTarget int
}

func (o SingleOrder) Message() string {
	if o.Switch != nil {
		return fmt.Sprintf("/choose switch %s", battle.ToID(o.Switch.Species))
	}
	if o.Move == nil {
		return "/choose default"
	}
	parts := []string{"move", o.Move.ID}
	if o.MoveTarget != 0 {
		parts = append(parts, fmt.Sprintf("%+d", o.MoveTarget))
	}
	switch {
	case o.Mega:
		parts = append(parts, "mega")
	case o.ZMove:
		parts = append(parts, "zmove")
	case o.Dynamax:
		parts = append(parts, "dynamax")
	case o.Tera:
		parts = append(parts, "terastallize")
	}
	return "/choose " + strings.Join(parts, " ")
}

func (o SingleOrder) gimmickTier() int {
	switch {
	case o.Mega:
		return 1
	case o.ZMove:
		return 2
	case o.Dynamax:
		return 3
	case o.Tera:
		return 4
	default:
		return 0
	}
}

// DoubleOrder pairs both slots' sub-orders. A nil sub-order is a pass.
type DoubleOrder struct {
	First  *SingleOrder
	Second *SingleOrder
}

func (o DoubleOrder) Message() string {
	return "/choose " + strings.Join([]string{subMessage(o.First), subMessage(o.Second)}, ", ")
}

func subMessage(o *SingleOrder) string {
	if o == nil {
		return "pass"
	}
	return strings.TrimPrefix(o.Message(), "/choose ")
}

// singleOrderFor builds a move order with the gimmick flag for one tier.
func singleOrderFor(move battle.Move, gimmick int, target int) *SingleOrder {
	m := move
	return &SingleOrder{
		Move:       &m,
		Mega:       gimmick == 1,
		ZMove:      gimmick == 2,
		Dynamax:    gimmick == 3,
		Tera:       gimmick == 4,
		MoveTarget: target,
	}
}
