package battle

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is the decoded form of one "|request|" payload: this seat's legal
// choices for the current decision point. The legality sets it carries are
// stale the moment a newer request arrives or the battle finishes.
type Request struct {
	RqID        int
	Wait        bool
	ForceSwitch []bool
	TeamPreview bool
}

type requestMoveJSON struct {
	Move     string `json:"move"`
	ID       string `json:"id"`
	PP       int    `json:"pp"`
	MaxPP    int    `json:"maxpp"`
	Target   string `json:"target"`
	Disabled bool   `json:"disabled"`
}

type requestActiveJSON struct {
	Moves           []requestMoveJSON `json:"moves"`
	CanMegaEvo      bool              `json:"canMegaEvo"`
	CanZMove        json.RawMessage   `json:"canZMove"`
	CanDynamax      bool              `json:"canDynamax"`
	CanTerastallize string            `json:"canTerastallize"`
	Trapped         bool              `json:"trapped"`
}

type requestPokemonJSON struct {
	Ident       string         `json:"ident"`
	Details     string         `json:"details"`
	Condition   string         `json:"condition"`
	Active      bool           `json:"active"`
	Stats       map[string]int `json:"stats"`
	Moves       []string       `json:"moves"`
	BaseAbility string         `json:"baseAbility"`
	Item        string         `json:"item"`
	TeraType    string         `json:"teraType"`
}

type requestJSON struct {
	Active []requestActiveJSON `json:"active"`
	Side   struct {
		Name    string               `json:"name"`
		ID      string               `json:"id"`
		Pokemon []requestPokemonJSON `json:"pokemon"`
	} `json:"side"`
	ForceSwitch []bool `json:"forceSwitch"`
	Wait        bool   `json:"wait"`
	TeamPreview bool   `json:"teamPreview"`
	MaxTeamSize int    `json:"maxTeamSize"`
	RqID        int    `json:"rqid"`
}

// ParseRequest decodes a request payload and merges it into the battle.
// The side's roster is reconciled against prior entries by species identity,
// not positionally: a request may arrive with a reordered or freshly revealed
// roster and must still land on the same tracked entries.
func (b *Battle) ParseRequest(payload []byte) (*Request, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}

	var req requestJSON
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed request payload: %w", err)
	}

	if req.Side.ID != "" {
		b.role = req.Side.ID
	}
	if req.MaxTeamSize > 0 {
		b.TeamSize = req.MaxTeamSize
	}

	slots := b.Format.Slots()
	b.active = make([]*Pokemon, slots)
	actives := make([]*Pokemon, 0, slots)

	for _, entry := range req.Side.Pokemon {
		mon := b.upsertTeamMember(entry.Ident, entry.Details)
		mon.applyCondition(entry.Condition)
		mon.Active = entry.Active
		mon.Item = entry.Item
		mon.Ability = entry.BaseAbility
		mon.TeraType = entry.TeraType
		if entry.Stats != nil {
			mon.Stats = entry.Stats
		}
		for _, moveID := range entry.Moves {
			if !mon.knowsMove(moveID) {
				mon.Moves = append(mon.Moves, Move{ID: ToID(moveID), Name: moveID})
			}
		}
		if entry.Active {
			actives = append(actives, mon)
		}
	}
	for i, mon := range actives {
		if i < slots {
			b.active[i] = mon
		}
	}

	b.ForceSwitch = make([]bool, slots)
	for i, fs := range req.ForceSwitch {
		if i < slots {
			b.ForceSwitch[i] = fs
		}
	}

	b.AvailableMoves = make([][]Move, slots)
	b.Trapped = make([]bool, slots)
	b.CanMega = make([]bool, slots)
	b.CanZMove = make([]bool, slots)
	b.CanDynamax = make([]bool, slots)
	b.CanTera = make([]string, slots)
	for pos := 0; pos < slots && pos < len(req.Active); pos++ {
		active := req.Active[pos]
		moves := make([]Move, 0, len(active.Moves))
		for _, m := range active.Moves {
			if !m.Disabled {
				moves = append(moves, Move{
					ID:     ToID(m.ID),
					Name:   m.Move,
					PP:     m.PP,
					MaxPP:  m.MaxPP,
					Target: m.Target,
				})
			}
		}
		b.AvailableMoves[pos] = moves
		b.Trapped[pos] = active.Trapped
		b.CanMega[pos] = active.CanMegaEvo
		b.CanZMove[pos] = len(active.CanZMove) > 0 && string(active.CanZMove) != "false" && string(active.CanZMove) != "null"
		b.CanDynamax[pos] = active.CanDynamax
		b.CanTera[pos] = active.CanTerastallize
	}

	b.recomputeSwitches()

	b.RqID = req.RqID
	decoded := &Request{
		RqID:        req.RqID,
		Wait:        req.Wait,
		ForceSwitch: append([]bool(nil), b.ForceSwitch...),
		TeamPreview: req.TeamPreview,
	}
	b.logger.Debug().Int("rqid", req.RqID).Bool("wait", req.Wait).Msg("request merged")
	return decoded, nil
}

// recomputeSwitches rebuilds the legal switch-in list: benched team members
// that still stand. A trapped singles seat has no legal switches at all.
func (b *Battle) recomputeSwitches() {
	switches := make([]*Pokemon, 0, len(b.teamOrder))
	trapped := len(b.Trapped) > 0 && b.Trapped[0] && !b.Format.Doubles
	forced := false
	for _, fs := range b.ForceSwitch {
		forced = forced || fs
	}
	if trapped && !forced {
		b.AvailableSwitches = switches
		return
	}
	for _, key := range b.teamOrder {
		mon := b.team[key]
		if !mon.Active && !mon.Fainted {
			switches = append(switches, mon)
		}
	}
	b.AvailableSwitches = switches
}
