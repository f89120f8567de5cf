package env

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cameronangliss/poke-env/battle"
)

var (
	turnStyle   = lipgloss.NewStyle().Faint(true)
	activeStyle = lipgloss.NewStyle().Bold(true)
	titleCaser  = cases.Title(language.English)
)

// RenderLine formats one battle state as a single status line, suitable for
// overwriting in place while an episode runs.
func RenderLine(b *battle.Battle) string {
	if b == nil {
		return ""
	}

	mine := teamDots(b.Team())
	theirs := teamDots(b.OpponentTeam())

	active := b.Active()
	opponent := b.OpponentActive()

	myHP, mySpecies := "  ?/  ?", "?"
	if active != nil {
		myHP = fmt.Sprintf("%3d/%3d", active.CurrentHP, active.MaxHP)
		mySpecies = titleCaser.String(active.Species)
	}
	theirPct, theirSpecies := "  ?", "?"
	if opponent != nil {
		theirPct = fmt.Sprintf("%3.0f", opponent.HPFraction()*100)
		theirSpecies = titleCaser.String(opponent.Species)
	}

	return fmt.Sprintf("%s | [%s][%shp] %s - %s [%s%%hp][%s]",
		turnStyle.Render(fmt.Sprintf("Turn %4d.", b.Turn)),
		mine, myHP,
		activeStyle.Render(fmt.Sprintf("%10.10s", mySpecies)),
		activeStyle.Render(fmt.Sprintf("%-10.10s", theirSpecies)),
		theirPct, theirs,
	)
}

func teamDots(team []*battle.Pokemon) string {
	dots := lo.Map(team, func(mon *battle.Pokemon, _ int) string {
		if mon.Fainted {
			return "x"
		}
		return "o"
	})
	return strings.Join(dots, "")
}
