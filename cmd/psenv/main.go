package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/cameronangliss/poke-env/env"
	"github.com/cameronangliss/poke-env/global"
	"github.com/cameronangliss/poke-env/showdown"
	"github.com/cameronangliss/poke-env/teams"
)

func main() {
	episodes := flag.Int("episodes", 5, "number of self-play episodes to run")
	format := flag.String("format", "gen8randombattle", "battle format")
	teamFile := flag.String("team", "", "path to a packed team file, for formats that need one")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; credentials can also come from the environment
	_ = godotenv.Load()

	config := global.LoadConfig()
	config.Debug = config.Debug || *debug
	global.InitLogging(config)

	server := showdown.ServerConfig{
		WebsocketURL: config.ServerURL,
		LoginURL:     config.LoginURL,
	}

	var builder teams.Builder
	if *teamFile != "" {
		packed, err := os.ReadFile(*teamFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", *teamFile).Msg("could not read team file")
		}
		builder = teams.ConstantBuilder{Team: string(packed)}
	}

	e := env.New(env.Config{
		Account1: showdown.AccountConfig{
			Username: os.Getenv("PSENV_USERNAME1"),
			Password: os.Getenv("PSENV_PASSWORD1"),
		},
		Account2: showdown.AccountConfig{
			Username: os.Getenv("PSENV_USERNAME2"),
			Password: os.Getenv("PSENV_PASSWORD2"),
		},
		Server: server,
		Format: *format,
		Team:   builder,
		Strict: true,
	})

	if err := e.Setup(); err != nil {
		log.Fatal().Err(err).Msg("setup failed")
	}

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	width, _, _ := term.GetSize(int(os.Stdout.Fd()))

	wins := 0
	for ep := 0; ep < *episodes; ep++ {
		battle1, battle2, err := e.Reset()
		if err != nil {
			log.Fatal().Err(err).Msg("reset failed")
		}
		for {
			res, err := e.Step(env.RandomAction(battle1, rng), env.RandomAction(battle2, rng))
			if err != nil {
				log.Fatal().Err(err).Msg("step failed")
			}
			battle1, battle2 = res.Battles[0], res.Battles[1]
			printStatus(env.RenderLine(battle1), width, battle1.Finished)
			if res.Terminated[0] || res.Truncated[0] {
				break
			}
		}
		if battle1.Won {
			wins++
		}
	}

	fmt.Printf("finished %d episodes, seat one won %d\n", *episodes, wins)
	if err := e.Close(); err != nil {
		log.Err(err).Msg("close failed")
	}
}

// printStatus rewrites the same terminal line until the episode ends.
func printStatus(line string, width int, done bool) {
	line = truncateLine(line, width)
	if done {
		fmt.Println(line)
	} else {
		fmt.Print(line + "\r")
	}
}

// truncateLine cuts a styled line down to the terminal width, counting
// printable cells rather than bytes so escape sequences survive intact.
func truncateLine(line string, width int) string {
	if width <= 0 || lipgloss.Width(line) <= width {
		return line
	}
	return ansi.Truncate(line, width, "")
}
