package showdown

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cameronangliss/poke-env/battle"
)

const gamesTimeout = 5 * time.Second

// Player wraps a Client with the command vocabulary one seat needs: login,
// challenge management, room membership and battle observation.
type Player struct {
	*Client
	Account AccountConfig

	httpClient *http.Client
}

func NewPlayer(account AccountConfig, server ServerConfig) *Player {
	return &Player{
		Client:     NewClient(account.Username, server),
		Account:    account,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Setup connects, logs in and forfeits any games left over from a previous
// session.
func (p *Player) Setup() error {
	p.Room = ""
	p.Connect()
	if err := p.Login(); err != nil {
		return err
	}
	return p.ForfeitGames()
}

// Teardown leaves the current room and logs out.
func (p *Player) Teardown() error {
	if err := p.Leave(); err != nil {
		return err
	}
	return p.Logout()
}

// Login answers the server's challstr. Accounts with a password obtain an
// assertion from the login endpoint; passwordless accounts send an empty
// one.
func (p *Player) Login() error {
	lines, err := p.FindMessage(MessageLogin, 0)
	if err != nil {
		return err
	}
	first := lines[0]
	if len(first) < 4 {
		return fmt.Errorf("malformed challstr message: %q", strings.Join(first, "|"))
	}
	clientID, challstr := first[2], first[3]

	assertion := ""
	if p.Account.Password != "" {
		assertion, err = p.fetchAssertion(clientID + "|" + challstr)
		if err != nil {
			return err
		}
	}
	return p.SendMessage(fmt.Sprintf("/trn %s,0,%s", p.Account.Username, assertion))
}

func (p *Player) fetchAssertion(challstr string) (string, error) {
	resp, err := p.httpClient.PostForm(p.server.LoginURL, url.Values{
		"name":     {p.Account.Username},
		"pass":     {p.Account.Password},
		"challstr": {challstr},
	})
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Assertion string `json:"assertion"`
	}
	// the login endpoint prefixes its JSON body with a sentinel character
	dec := json.NewDecoder(&sentinelStripper{r: resp.Body})
	if err := dec.Decode(&body); err != nil {
		return "", fmt.Errorf("malformed login response: %w", err)
	}
	if body.Assertion == "" {
		return "", fmt.Errorf("login response carried no assertion")
	}
	return body.Assertion, nil
}

// ForfeitGames clears lingering battles from a previous session. The first
// games message is always empty and is skipped; absence of a second one just
// means the account freshly logged in.
func (p *Player) ForfeitGames() error {
	if _, err := p.FindMessage(MessageGames, 0); err != nil {
		return err
	}
	lines, err := p.FindMessage(MessageGames, gamesTimeout)
	if errors.Is(err, ErrTimeout) {
		p.logger.Info().Msg("no second updatesearch message; user just logged in")
		return nil
	}
	if err != nil {
		return err
	}
	rooms, err := parseGames(lines)
	if err != nil {
		return err
	}
	prevRoom := p.Room
	for _, room := range rooms {
		if err := p.Join(room); err != nil {
			return err
		}
		if err := p.SendMessage("/forfeit"); err != nil {
			return err
		}
		if err := p.Leave(); err != nil {
			return err
		}
	}
	if prevRoom != "" {
		return p.Join(prevRoom)
	}
	return nil
}

func parseGames(lines [][]string) ([]string, error) {
	if len(lines[0]) < 3 {
		return nil, fmt.Errorf("malformed updatesearch message")
	}
	var payload struct {
		Games map[string]json.RawMessage `json:"games"`
	}
	if err := json.Unmarshal([]byte(lines[0][2]), &payload); err != nil {
		return nil, fmt.Errorf("malformed games payload: %w", err)
	}
	rooms := make([]string, 0, len(payload.Games))
	for room := range payload.Games {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (p *Player) SetAvatar(avatar string) error {
	return p.SendMessage("/avatar " + avatar)
}

// Challenge sends a challenge for the given format and blocks until the
// server confirms it went out.
func (p *Player) Challenge(opponent string, format string, team string) error {
	if err := p.SendMessage("/utm " + packedTeam(team)); err != nil {
		return err
	}
	if err := p.SendMessage(fmt.Sprintf("/challenge %s, %s", opponent, format)); err != nil {
		return err
	}
	_, err := p.FindMessage(MessageChallenge, 0)
	return err
}

// Cancel withdraws an outstanding challenge.
func (p *Player) Cancel(opponent string) error {
	if err := p.SendMessage("/cancelchallenge " + opponent); err != nil {
		return err
	}
	_, err := p.FindMessage(MessageCancel, 0)
	return err
}

// Accept waits for an incoming challenge, accepts it and returns the battle
// room that opens up.
func (p *Player) Accept(opponent string, team string) (string, error) {
	if _, err := p.FindMessage(MessageAccept, 0); err != nil {
		return "", err
	}
	if err := p.SendMessage("/utm " + packedTeam(team)); err != nil {
		return "", err
	}
	if err := p.SendMessage("/accept " + opponent); err != nil {
		return "", err
	}
	// the first games message is always empty
	if _, err := p.FindMessage(MessageGames, 0); err != nil {
		return "", err
	}
	lines, err := p.FindMessage(MessageGames, 0)
	if err != nil {
		return "", err
	}
	rooms, err := parseGames(lines)
	if err != nil {
		return "", err
	}
	if len(rooms) == 0 {
		return "", fmt.Errorf("accepted a challenge but no game room was listed")
	}
	return rooms[0], nil
}

func (p *Player) Join(room string) error {
	if err := p.SendMessage("/join " + room); err != nil {
		return err
	}
	p.Room = room
	return nil
}

// Leave exits the current room and drains the room's teardown messages.
func (p *Player) Leave() error {
	if p.Room == "" {
		return nil
	}
	if err := p.SendMessage("/leave " + p.Room); err != nil {
		return err
	}
	if _, err := p.FindMessage(MessageLeave, 0); err != nil {
		return err
	}
	p.Room = ""
	return nil
}

func (p *Player) TimerOn() error {
	return p.SendMessage("/timer on")
}

// Choose submits one decision for the request identified by rqid. The choice
// string comes from an Order's Message rendering.
func (p *Player) Choose(choice string, rqid int) error {
	if strings.HasPrefix(choice, "/choose") {
		return p.SendMessage(fmt.Sprintf("%s|%d", choice, rqid))
	}
	return p.SendMessage(choice)
}

func (p *Player) Forfeit() error {
	return p.SendMessage("/forfeit")
}

func (p *Player) Logout() error {
	return p.SendMessage("/logout")
}

// Observe reads one classified observe message and applies it to the battle,
// creating the battle on first contact. It returns the decoded request when
// one was present, and whether the server rejected the seat's previous
// choice (a retry signal).
func (p *Player) Observe(b *battle.Battle, format battle.Format) (*battle.Battle, *battle.Request, bool, error) {
	lines, err := p.FindMessage(MessageObserve, 0)
	if err != nil {
		return b, nil, false, err
	}

	var payload []byte
	var protocol [][]string
	if len(lines) == 2 && len(lines[1]) == 3 && lines[1][1] == "request" {
		payload = []byte(lines[1][2])
		protocol, err = p.FindMessage(MessageObserve, 0)
		if err != nil {
			return b, nil, false, err
		}
	} else {
		protocol = lines
	}

	if b == nil {
		tag := strings.TrimPrefix(strings.TrimSpace(lines[0][0]), ">")
		if tag == "" {
			tag = p.Room
		}
		b = battle.New(tag, p.Account.Username, format)
	}

	var req *battle.Request
	if payload != nil {
		req, err = b.ParseRequest(payload)
		if err != nil {
			return b, nil, false, err
		}
	}
	retry := b.ParseMessage(protocol)
	return b, req, retry, nil
}

func packedTeam(team string) string {
	if team == "" {
		return "null"
	}
	return team
}

// sentinelStripper drops the single sentinel byte the login endpoint
// prepends to its JSON body.
type sentinelStripper struct {
	r        io.Reader
	stripped bool
}

func (s *sentinelStripper) Read(buf []byte) (int, error) {
	if !s.stripped {
		s.stripped = true
		one := make([]byte, 1)
		if _, err := s.r.Read(one); err != nil {
			return 0, err
		}
	}
	return s.r.Read(buf)
}
