package battle

import (
	"strconv"
	"strings"
)

type Move struct {
	ID       string
	Name     string
	PP       int
	MaxPP    int
	Target   string
	Disabled bool
}

// Pokemon is one tracked roster entry. Entries are created the first time an
// identity is seen (either in a request or a switch-in line) and are mutated
// in place afterwards; they are never removed mid-battle.
type Pokemon struct {
	Species string
	Name    string
	Details string
	Level   int

	CurrentHP int
	MaxHP     int
	Status    string
	Fainted   bool
	Active    bool

	// Moves in insertion order as revealed. For this player's side the full
	// moveset comes from requests; for the opponent moves are revealed one
	// "move" line at a time.
	Moves []Move

	Item     string
	Ability  string
	Stats    map[string]int
	TeraType string
}

// ToID normalizes a display name into a showdown identifier: lowercased with
// everything outside [a-z0-9] stripped. "Flabébé" and "Mr. Mime" both survive
// this.
func ToID(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HPFraction reports current hp as a fraction of max, 0 for fainted or
// unrevealed entries.
func (p *Pokemon) HPFraction() float64 {
	if p.MaxHP == 0 || p.Fainted {
		return 0
	}
	return float64(p.CurrentHP) / float64(p.MaxHP)
}

func (p *Pokemon) knowsMove(id string) bool {
	for _, m := range p.Moves {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (p *Pokemon) revealMove(name string) {
	id := ToID(name)
	if id == "" || id == "struggle" {
		return
	}
	if !p.knowsMove(id) {
		p.Moves = append(p.Moves, Move{ID: id, Name: name})
	}
}

// applyCondition parses a showdown condition token ("211/340", "88/100 brn",
// "0 fnt") into hp, max hp, status and the fainted flag.
func (p *Pokemon) applyCondition(condition string) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return
	}

	fields := strings.Fields(condition)
	hpPart := fields[0]

	if hp, maxHP, ok := strings.Cut(hpPart, "/"); ok {
		p.CurrentHP, _ = strconv.Atoi(hp)
		p.MaxHP, _ = strconv.Atoi(maxHP)
	} else {
		p.CurrentHP, _ = strconv.Atoi(hpPart)
	}

	p.Fainted = false
	p.Status = ""
	for _, f := range fields[1:] {
		if f == "fnt" {
			p.Fainted = true
			p.CurrentHP = 0
		} else {
			p.Status = f
		}
	}
}

// parseDetails splits a details token ("Charizard, L82, M" or just
// "Ditto") into species and level. Level defaults to 100 when absent.
func parseDetails(details string) (species string, level int) {
	level = 100
	for i, part := range strings.Split(details, ",") {
		part = strings.TrimSpace(part)
		if i == 0 {
			species = part
		} else if strings.HasPrefix(part, "L") {
			if lvl, err := strconv.Atoi(part[1:]); err == nil {
				level = lvl
			}
		}
	}
	return species, level
}

// parseIdent splits a pokemon identifier ("p1a: Charizard" in protocol
// lines, "p1: Charizard" in requests) into the owning role and the name.
func parseIdent(ident string) (role string, name string) {
	left, right, ok := strings.Cut(ident, ":")
	if !ok {
		return "", strings.TrimSpace(ident)
	}
	role = strings.TrimRight(strings.TrimSpace(left), "abc")
	return role, strings.TrimSpace(right)
}

// identSlot reports the field slot encoded in a protocol ident ("p1a" is
// slot 0, "p2b" slot 1), or 0 when no slot letter is present.
func identSlot(ident string) int {
	left, _, ok := strings.Cut(ident, ":")
	if !ok {
		return 0
	}
	left = strings.TrimSpace(left)
	if len(left) >= 3 && left[2] >= 'a' && left[2] <= 'c' {
		return int(left[2] - 'a')
	}
	return 0
}
