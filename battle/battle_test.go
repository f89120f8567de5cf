package battle

import (
	"strings"
	"testing"
)

const singlesRequest = `{
	"active": [{
		"moves": [
			{"move": "Flamethrower", "id": "flamethrower", "pp": 24, "maxpp": 24, "target": "normal", "disabled": false},
			{"move": "Air Slash", "id": "airslash", "pp": 24, "maxpp": 24, "target": "any", "disabled": false},
			{"move": "Dragon Pulse", "id": "dragonpulse", "pp": 16, "maxpp": 16, "target": "any", "disabled": true},
			{"move": "Roost", "id": "roost", "pp": 16, "maxpp": 16, "target": "self", "disabled": false}
		],
		"canDynamax": true
	}],
	"side": {
		"name": "alice",
		"id": "p1",
		"pokemon": [
			{"ident": "p1: Charizard", "details": "Charizard, L82, M", "condition": "211/340", "active": true,
				"stats": {"atk": 185, "spe": 200}, "moves": ["flamethrower", "airslash", "dragonpulse", "roost"],
				"baseAbility": "blaze", "item": "heavydutyboots"},
			{"ident": "p1: Venusaur", "details": "Venusaur, L84, F", "condition": "300/300", "active": false,
				"moves": ["gigadrain", "sludgebomb"]},
			{"ident": "p1: Blastoise", "details": "Blastoise, L80, M", "condition": "0 fnt", "active": false,
				"moves": ["surf"]}
		]
	},
	"rqid": 3
}`

func newSinglesBattle(t *testing.T) *Battle {
	t.Helper()
	b := New("battle-gen8randombattle-1", "alice", ParseFormat("gen8randombattle"))
	if _, err := b.ParseRequest([]byte(singlesRequest)); err != nil {
		t.Fatalf("request failed to parse: %s", err)
	}
	return b
}

func protoLines(lines ...string) [][]string {
	tokens := make([][]string, len(lines))
	for i, l := range lines {
		tokens[i] = strings.Split(l, "|")
	}
	return tokens
}

func TestParseRequest(t *testing.T) {
	b := newSinglesBattle(t)

	if b.RqID != 3 {
		t.Fatalf("expected rqid 3, got %d", b.RqID)
	}
	if b.Role() != "p1" {
		t.Fatalf("expected role p1, got %q", b.Role())
	}

	team := b.Team()
	if len(team) != 3 {
		t.Fatalf("expected 3 team members, got %d", len(team))
	}
	if team[0].Species != "Charizard" || team[0].Level != 82 {
		t.Fatalf("first member parsed wrong: %+v", team[0])
	}
	if team[0].Item != "heavydutyboots" || team[0].Ability != "blaze" {
		t.Fatalf("item/ability parsed wrong: %+v", team[0])
	}
	if len(team[0].Moves) != 4 {
		t.Fatalf("expected 4 known moves, got %d", len(team[0].Moves))
	}

	active := b.Active()
	if active == nil || active.Species != "Charizard" {
		t.Fatalf("active should be Charizard, got %+v", active)
	}

	// the disabled move is excluded from the legal set but stays known
	if len(b.AvailableMoves[0]) != 3 {
		t.Fatalf("expected 3 available moves, got %d", len(b.AvailableMoves[0]))
	}
	for _, m := range b.AvailableMoves[0] {
		if m.ID == "dragonpulse" {
			t.Fatalf("disabled move should not be available")
		}
	}

	if !b.CanDynamax[0] || b.CanMega[0] || b.CanZMove[0] {
		t.Fatalf("gimmick flags parsed wrong: dmax=%v mega=%v z=%v", b.CanDynamax[0], b.CanMega[0], b.CanZMove[0])
	}

	// Venusaur stands, Blastoise fainted, Charizard is on the field
	switches := b.AvailableSwitches
	if len(switches) != 1 || switches[0].Species != "Venusaur" {
		t.Fatalf("expected Venusaur as the only switch, got %+v", switches)
	}
}

func TestParseRequestTrapped(t *testing.T) {
	b := New("battle-gen8randombattle-2", "alice", ParseFormat("gen8randombattle"))
	trapped := strings.Replace(singlesRequest, `"canDynamax": true`, `"canDynamax": true, "trapped": true`, 1)
	if _, err := b.ParseRequest([]byte(trapped)); err != nil {
		t.Fatalf("request failed to parse: %s", err)
	}
	if !b.Trapped[0] {
		t.Fatalf("trapped flag not set")
	}
	if len(b.AvailableSwitches) != 0 {
		t.Fatalf("a trapped pokemon should have no switches, got %d", len(b.AvailableSwitches))
	}
}

func TestParseRequestForceSwitch(t *testing.T) {
	b := New("battle-gen8randombattle-3", "alice", ParseFormat("gen8randombattle"))
	payload := strings.Replace(singlesRequest, `"rqid": 3`, `"forceSwitch": [true], "rqid": 4`, 1)
	req, err := b.ParseRequest([]byte(payload))
	if err != nil {
		t.Fatalf("request failed to parse: %s", err)
	}
	if len(req.ForceSwitch) != 1 || !req.ForceSwitch[0] {
		t.Fatalf("force switch not decoded: %+v", req)
	}
	if req.RqID != 4 {
		t.Fatalf("expected rqid 4, got %d", req.RqID)
	}
}

func TestParseRequestWait(t *testing.T) {
	b := New("battle-gen8randombattle-4", "alice", ParseFormat("gen8randombattle"))
	payload := strings.Replace(singlesRequest, `"rqid": 3`, `"wait": true, "rqid": 5`, 1)
	req, err := b.ParseRequest([]byte(payload))
	if err != nil {
		t.Fatalf("request failed to parse: %s", err)
	}
	if !req.Wait {
		t.Fatalf("wait flag not decoded")
	}
}

func TestParseRequestEmptyPayload(t *testing.T) {
	b := New("battle-gen8randombattle-5", "alice", ParseFormat("gen8randombattle"))
	req, err := b.ParseRequest([]byte("  "))
	if err != nil || req != nil {
		t.Fatalf("blank payload should be a no-op, got %+v / %s", req, err)
	}
}

func TestIdentityReconciliation(t *testing.T) {
	b := newSinglesBattle(t)
	before := b.Active()

	// the protocol names the same pokemon with a slot letter
	b.ParseMessage(protoLines("|switch|p1a: Charizard|Charizard, L82, M|180/340"))

	if len(b.Team()) != 3 {
		t.Fatalf("switch line should not grow the team, got %d members", len(b.Team()))
	}
	if b.Active() != before {
		t.Fatalf("switch line landed on a different entry")
	}
	if before.CurrentHP != 180 {
		t.Fatalf("condition not applied, hp %d", before.CurrentHP)
	}
}

func TestSwitchIgnoresOutOfRangeSlot(t *testing.T) {
	b := newSinglesBattle(t)

	// a doubles-style slot letter has no field slot in a singles battle
	b.ParseMessage(protoLines("|switch|p2b: Dragonite|Dragonite, L76|100/100"))

	opp := b.OpponentTeam()
	if len(opp) != 1 {
		t.Fatalf("the pokemon should still be revealed, got %d", len(opp))
	}
	if opp[0].Active {
		t.Fatalf("no field slot references the pokemon, it must not be active")
	}
	if b.OpponentActive() != nil {
		t.Fatalf("slot 0 should stay empty")
	}
}

func TestOpponentReveal(t *testing.T) {
	b := newSinglesBattle(t)

	b.ParseMessage(protoLines(
		"|switch|p2a: Dragonite|Dragonite, L76|100/100",
		"|move|p2a: Dragonite|Outrage|p1a: Charizard",
	))

	opp := b.OpponentTeam()
	if len(opp) != 1 || opp[0].Species != "Dragonite" {
		t.Fatalf("opponent not revealed: %+v", opp)
	}
	if opp[0].Level != 76 {
		t.Fatalf("opponent level parsed wrong: %d", opp[0].Level)
	}
	if len(opp[0].Moves) != 1 || opp[0].Moves[0].ID != "outrage" {
		t.Fatalf("opponent move not revealed: %+v", opp[0].Moves)
	}
	if b.OpponentActive() != opp[0] {
		t.Fatalf("opponent active slot not set")
	}

	// this player's own moves are never revealed from protocol lines
	b.ParseMessage(protoLines("|move|p1a: Charizard|Flamethrower|p2a: Dragonite"))
	if len(b.Team()[0].Moves) != 4 {
		t.Fatalf("own moveset should come from requests only")
	}
}

func TestDamageFaintAndStatus(t *testing.T) {
	b := newSinglesBattle(t)
	b.ParseMessage(protoLines(
		"|switch|p2a: Dragonite|Dragonite, L76|100/100",
		"|-damage|p2a: Dragonite|54/100",
		"|-status|p2a: Dragonite|brn",
	))

	opp := b.OpponentTeam()[0]
	if opp.CurrentHP != 54 || opp.Status != "brn" {
		t.Fatalf("damage/status not applied: %+v", opp)
	}

	b.ParseMessage(protoLines(
		"|-curestatus|p2a: Dragonite|brn",
		"|-damage|p2a: Dragonite|0 fnt",
		"|faint|p2a: Dragonite",
	))
	if opp.Status != "" || !opp.Fainted || opp.CurrentHP != 0 {
		t.Fatalf("faint not applied: %+v", opp)
	}
	if b.OpponentFaintedCount() != 1 {
		t.Fatalf("expected 1 opposing faint, got %d", b.OpponentFaintedCount())
	}
}

func TestTeamPreviewReveal(t *testing.T) {
	b := newSinglesBattle(t)
	b.ParseMessage(protoLines(
		"|poke|p1|Charizard, L82, M|",
		"|poke|p2|Garchomp, L78, F|",
		"|poke|p2|Rotom-Wash, L80|",
	))

	if len(b.OpponentTeam()) != 2 {
		t.Fatalf("expected 2 previewed opponents, got %d", len(b.OpponentTeam()))
	}
	if len(b.Team()) != 3 {
		t.Fatalf("own preview lines should not grow the team")
	}
}

func TestTurnAndTeamSize(t *testing.T) {
	b := newSinglesBattle(t)
	b.ParseMessage(protoLines("|teamsize|p1|4", "|turn|3"))
	if b.TeamSize != 4 {
		t.Fatalf("team size not applied, got %d", b.TeamSize)
	}
	if b.Turn != 3 {
		t.Fatalf("turn not applied, got %d", b.Turn)
	}

	// turns never go backwards, even if the stream replays
	b.ParseMessage(protoLines("|turn|2"))
	if b.Turn != 3 {
		t.Fatalf("turn went backwards to %d", b.Turn)
	}
}

func TestWinLossAndTie(t *testing.T) {
	b := newSinglesBattle(t)
	b.ParseMessage(protoLines("|win|alice"))
	if !b.Finished || !b.Won || b.Lost || b.Tied {
		t.Fatalf("win not applied: %+v", b)
	}

	// terminal flags are set once
	b.ParseMessage(protoLines("|win|bob"))
	if !b.Won || b.Lost {
		t.Fatalf("second win line should be ignored")
	}

	loss := newSinglesBattle(t)
	loss.ParseMessage(protoLines("|win|bob"))
	if !loss.Finished || !loss.Lost || loss.Won {
		t.Fatalf("loss not applied: %+v", loss)
	}

	tie := newSinglesBattle(t)
	tie.ParseMessage(protoLines("|tie"))
	if !tie.Finished || !tie.Tied || tie.Won || tie.Lost {
		t.Fatalf("tie not applied: %+v", tie)
	}
}

func TestErrorLineSignalsRetry(t *testing.T) {
	b := newSinglesBattle(t)
	if retry := b.ParseMessage(protoLines("|error|[Invalid choice] Can't move: Charizard is trapped")); !retry {
		t.Fatalf("error line should signal a retry")
	}
	if retry := b.ParseMessage(protoLines("|turn|2")); retry {
		t.Fatalf("ordinary lines should not signal a retry")
	}
}

func TestSideAndFieldConditions(t *testing.T) {
	b := newSinglesBattle(t)
	b.ParseMessage(protoLines(
		"|-weather|RainDance",
		"|-fieldstart|move: Electric Terrain",
		"|-sidestart|p1: alice|Stealth Rock",
		"|-sidestart|p2: bob|Light Screen",
	))
	if b.Weather != "RainDance" {
		t.Fatalf("weather not applied: %q", b.Weather)
	}
	if !b.Fields["move: Electric Terrain"] {
		t.Fatalf("field not applied")
	}
	if !b.SideConditions["Stealth Rock"] || !b.OpponentSideConditions["Light Screen"] {
		t.Fatalf("side conditions not applied: %+v %+v", b.SideConditions, b.OpponentSideConditions)
	}

	b.ParseMessage(protoLines("|-fieldend|move: Electric Terrain", "|-sideend|p1: alice|Stealth Rock"))
	if b.Fields["move: Electric Terrain"] || b.SideConditions["Stealth Rock"] {
		t.Fatalf("conditions not cleared")
	}
}
