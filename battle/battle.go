package battle

import (
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Battle is the incrementally updated model of one battle as seen from one
// seat. It is built from the stream of classified observe messages: request
// payloads refresh the legality sets, protocol event batches mutate the
// public state. All mutation happens on the owning seat's loop; callers only
// ever borrow the value at a decision point.
type Battle struct {
	Tag      string
	Username string
	Format   Format

	team          map[string]*Pokemon
	teamOrder     []string
	opponentTeam  map[string]*Pokemon
	opponentOrder []string

	role           string
	active         []*Pokemon
	opponentActive []*Pokemon

	// Legality sets from the latest request. Only valid until the next
	// request arrives or the battle finishes.
	AvailableMoves    [][]Move
	AvailableSwitches []*Pokemon
	ForceSwitch       []bool
	Trapped           []bool
	CanMega           []bool
	CanZMove          []bool
	CanDynamax        []bool
	CanTera           []string

	Turn     int
	RqID     int
	TeamSize int

	Finished bool
	Won      bool
	Lost     bool
	Tied     bool

	Weather                string
	Fields                 map[string]bool
	SideConditions         map[string]bool
	OpponentSideConditions map[string]bool

	logger zerolog.Logger
}

func New(tag string, username string, format Format) *Battle {
	slots := format.Slots()
	return &Battle{
		Tag:                    tag,
		Username:               username,
		Format:                 format,
		team:                   make(map[string]*Pokemon),
		opponentTeam:           make(map[string]*Pokemon),
		active:                 make([]*Pokemon, slots),
		opponentActive:         make([]*Pokemon, slots),
		AvailableMoves:         make([][]Move, slots),
		ForceSwitch:            make([]bool, slots),
		Trapped:                make([]bool, slots),
		CanMega:                make([]bool, slots),
		CanZMove:               make([]bool, slots),
		CanDynamax:             make([]bool, slots),
		CanTera:                make([]string, slots),
		TeamSize:               6,
		Fields:                 make(map[string]bool),
		SideConditions:         make(map[string]bool),
		OpponentSideConditions: make(map[string]bool),
		logger:                 log.With().Str("battle", tag).Str("player", username).Logger(),
	}
}

func (b *Battle) Role() string { return b.role }

// Team returns this side's roster in insertion order.
func (b *Battle) Team() []*Pokemon {
	return lo.Map(b.teamOrder, func(key string, _ int) *Pokemon { return b.team[key] })
}

// OpponentTeam returns the opposing roster as revealed so far, in reveal
// order.
func (b *Battle) OpponentTeam() []*Pokemon {
	return lo.Map(b.opponentOrder, func(key string, _ int) *Pokemon { return b.opponentTeam[key] })
}

// ActivePokemon returns the pokemon battling in the given slot, or nil in
// the window between a faint and the forced switch that follows.
func (b *Battle) ActivePokemon(pos int) *Pokemon {
	if pos < 0 || pos >= len(b.active) {
		return nil
	}
	return b.active[pos]
}

// Active returns the singles active pokemon.
func (b *Battle) Active() *Pokemon { return b.ActivePokemon(0) }

func (b *Battle) FaintedCount() int {
	return lo.CountBy(b.Team(), func(p *Pokemon) bool { return p.Fainted })
}

func (b *Battle) OpponentFaintedCount() int {
	return lo.CountBy(b.OpponentTeam(), func(p *Pokemon) bool { return p.Fainted })
}

// upsertTeamMember resolves an identity to this side's tracked entry,
// creating it when unseen. Identity is the anchor: a request naming
// "p1: Charizard" and a protocol line naming "p1a: Charizard" land on the
// same entry.
func (b *Battle) upsertTeamMember(ident string, details string) *Pokemon {
	species, level := parseDetails(details)
	if species == "" {
		_, species = parseIdent(ident)
	}
	key := ToID(species)
	if mon, ok := b.team[key]; ok {
		return mon
	}
	mon := &Pokemon{Species: species, Name: species, Details: details, Level: level}
	b.team[key] = mon
	b.teamOrder = append(b.teamOrder, key)
	return mon
}

func (b *Battle) upsertOpponentMember(ident string, details string) *Pokemon {
	species, level := parseDetails(details)
	if species == "" {
		_, species = parseIdent(ident)
	}
	key := ToID(species)
	if mon, ok := b.opponentTeam[key]; ok {
		return mon
	}
	mon := &Pokemon{Species: species, Name: species, Details: details, Level: level}
	b.opponentTeam[key] = mon
	b.opponentOrder = append(b.opponentOrder, key)
	return mon
}

func (b *Battle) mine(role string) bool {
	return b.role != "" && role == b.role
}

// ParseMessage applies one protocol event batch in strict temporal order.
// It reports whether the batch contained a choice-rejection error line, which
// the seat loop surfaces as a retry signal.
func (b *Battle) ParseMessage(lines [][]string) (retry bool) {
	for _, tokens := range lines {
		if len(tokens) < 2 {
			continue
		}
		b.applyLine(tokens[1], tokens[2:], &retry)
	}
	return retry
}

func (b *Battle) applyLine(kind string, args []string, retry *bool) {
	switch kind {
	case "", "t:", "c", "c:", "j", "l", "raw", "html", "upkeep", "inactive", "inactiveoff", "debug", "rated", "gametype", "gen", "tier", "rule", "start", "clearpoke", "teampreview":
		// no state carried

	case "switch", "drag", "replace":
		if len(args) < 3 {
			return
		}
		role, _ := parseIdent(args[0])
		slot := identSlot(args[0])
		if b.mine(role) {
			mon := b.upsertTeamMember(args[0], args[1])
			mon.applyCondition(args[2])
			b.setActive(slot, mon, true)
		} else {
			mon := b.upsertOpponentMember(args[0], args[1])
			mon.applyCondition(args[2])
			b.setActive(slot, mon, false)
		}

	case "detailschange", "-formechange":
		if len(args) < 2 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Details = args[1]
		}

	case "move":
		if len(args) < 2 {
			return
		}
		role, _ := parseIdent(args[0])
		if !b.mine(role) {
			if mon := b.findMember(args[0]); mon != nil {
				mon.revealMove(args[1])
			}
		}

	case "-damage", "-heal", "-sethp":
		if len(args) < 2 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.applyCondition(args[1])
		}

	case "faint":
		if len(args) < 1 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Fainted = true
			mon.CurrentHP = 0
		}

	case "-status":
		if len(args) < 2 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Status = args[1]
		}

	case "-curestatus":
		if len(args) < 1 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Status = ""
		}

	case "-item":
		if len(args) < 2 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Item = ToID(args[1])
		}

	case "-ability":
		if len(args) < 2 {
			return
		}
		if mon := b.findMember(args[0]); mon != nil {
			mon.Ability = ToID(args[1])
		}

	case "poke":
		// team preview reveal
		if len(args) < 2 {
			return
		}
		if !b.mine(args[0]) {
			b.upsertOpponentMember("", args[1])
		}

	case "teamsize":
		if len(args) < 2 {
			return
		}
		if size, err := strconv.Atoi(args[1]); err == nil && b.mine(args[0]) {
			b.TeamSize = size
		}

	case "player":
		// |player|p1|Username|avatar|rating
		if len(args) >= 2 && args[1] == b.Username {
			b.role = args[0]
		}

	case "turn":
		if len(args) < 1 {
			return
		}
		if turn, err := strconv.Atoi(args[0]); err == nil && turn > b.Turn {
			b.Turn = turn
		}

	case "-weather":
		if len(args) >= 1 {
			b.Weather = args[0]
		}

	case "-fieldstart":
		if len(args) >= 1 {
			b.Fields[args[0]] = true
		}

	case "-fieldend":
		if len(args) >= 1 {
			delete(b.Fields, args[0])
		}

	case "-sidestart":
		if len(args) >= 2 {
			if role, _ := parseIdent(args[0]); b.mine(role) {
				b.SideConditions[args[1]] = true
			} else {
				b.OpponentSideConditions[args[1]] = true
			}
		}

	case "-sideend":
		if len(args) >= 2 {
			if role, _ := parseIdent(args[0]); b.mine(role) {
				delete(b.SideConditions, args[1])
			} else {
				delete(b.OpponentSideConditions, args[1])
			}
		}

	case "win":
		if b.Finished {
			return
		}
		b.Finished = true
		if len(args) >= 1 && args[0] == b.Username {
			b.Won = true
		} else {
			b.Lost = true
		}
		b.logger.Info().Bool("won", b.Won).Int("turn", b.Turn).Msg("battle finished")

	case "tie":
		if b.Finished {
			return
		}
		b.Finished = true
		b.Tied = true
		b.logger.Info().Int("turn", b.Turn).Msg("battle tied")

	case "error":
		*retry = true
		b.logger.Warn().Strs("args", args).Msg("server rejected choice")

	default:
		b.logger.Trace().Str("kind", kind).Msg("ignoring protocol line")
	}
}

// setActive installs mon as the occupant of a field slot, clearing the
// previous occupant's flag.
func (b *Battle) setActive(slot int, mon *Pokemon, mine bool) {
	slots := b.active
	if !mine {
		slots = b.opponentActive
	}
	if slot < 0 || slot >= len(slots) {
		return
	}
	if prev := slots[slot]; prev != nil && prev != mon {
		prev.Active = false
	}
	slots[slot] = mon
	mon.Active = true
}

// OpponentActivePokemon returns the revealed opposing pokemon in the given
// slot, or nil before anything has switched in there.
func (b *Battle) OpponentActivePokemon(pos int) *Pokemon {
	if pos < 0 || pos >= len(b.opponentActive) {
		return nil
	}
	return b.opponentActive[pos]
}

// OpponentActive returns the singles opposing active pokemon.
func (b *Battle) OpponentActive() *Pokemon { return b.OpponentActivePokemon(0) }

// findMember resolves a protocol ident to whichever side owns it.
func (b *Battle) findMember(ident string) *Pokemon {
	role, name := parseIdent(ident)
	key := ToID(name)
	if b.mine(role) {
		if mon, ok := b.team[key]; ok {
			return mon
		}
		return nil
	}
	if mon, ok := b.opponentTeam[key]; ok {
		return mon
	}
	// unseen opposing pokemon named mid-batch; reveal it lazily
	if role != "" && !b.mine(role) {
		return b.upsertOpponentMember(ident, name)
	}
	return nil
}
