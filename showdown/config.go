package showdown

import (
	"strings"

	"github.com/google/uuid"
)

// AccountConfig identifies one account. Immutable once constructed; an empty
// password skips the login assertion exchange.
type AccountConfig struct {
	Username string
	Password string
}

// GenerateAccountConfig builds a throwaway passwordless account with a
// random username, for self-play against a local server.
func GenerateAccountConfig(prefix string) AccountConfig {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return AccountConfig{Username: prefix + suffix}
}

// ServerConfig points at one showdown server. Immutable.
type ServerConfig struct {
	// WebsocketURL is the full websocket endpoint, e.g.
	// "ws://localhost:8000/showdown/websocket".
	WebsocketURL string
	// LoginURL is the HTTP endpoint used to obtain login assertions.
	LoginURL string
}

// LocalhostServerConfig targets a default local showdown install.
var LocalhostServerConfig = ServerConfig{
	WebsocketURL: "ws://localhost:8000/showdown/websocket",
	LoginURL:     "https://play.pokemonshowdown.com/api/login",
}

// MainServerConfig targets the public showdown server.
var MainServerConfig = ServerConfig{
	WebsocketURL: "wss://sim.psim.us/showdown/websocket",
	LoginURL:     "https://play.pokemonshowdown.com/api/login",
}
