package battle

import (
	"strconv"
	"strings"
)

// Format identifies a battle format by its generation and mode. It is parsed
// once from the format string (e.g. "gen8randombattle", "gen9vgc2024") and
// never changes for the lifetime of a battle.
type Format struct {
	Name    string
	Gen     int
	Doubles bool
}

func ParseFormat(name string) Format {
	f := Format{Name: name}

	if strings.HasPrefix(name, "gen") && len(name) > 3 {
		if gen, err := strconv.Atoi(name[3:4]); err == nil {
			f.Gen = gen
		}
	}

	if strings.Contains(name, "doubles") || strings.Contains(name, "vgc") || strings.Contains(name, "freeforall") {
		f.Doubles = true
	}

	return f
}

// GimmickCount returns how many one-shot mechanics exist in this format's
// generation: mega evolution from gen 6, z-moves from gen 7, dynamax in
// gen 8, terastallization in gen 9.
func (f Format) GimmickCount() int {
	switch f.Gen {
	case 6:
		return 1
	case 7:
		return 2
	case 8:
		return 3
	case 9:
		return 4
	default:
		return 0
	}
}

// Slots returns how many pokemon each side has on the field at once.
func (f Format) Slots() int {
	if f.Doubles {
		return 2
	}
	return 1
}
