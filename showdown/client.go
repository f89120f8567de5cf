package showdown

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageType is the kind of server message a caller is waiting for. Any
// message on the stream that does not match the awaited kind (chat, other
// rooms, pings) is discarded silently and the wait continues.
type MessageType int

const (
	MessageLogin MessageType = iota + 1
	MessageGames
	MessageChallenge
	MessageCancel
	MessageAccept
	MessageObserve
	MessageLeave
)

const connectRetryDelay = 10 * time.Second

// wsConn is the slice of *websocket.Conn the client needs. Tests substitute
// an in-memory pipe.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Client owns one bidirectional text-line channel to a showdown server and
// classifies inbound messages. One Client serves one seat; all reads and
// writes happen on that seat's loop goroutine.
type Client struct {
	Username string
	Room     string

	server ServerConfig
	conn   wsConn
	logger zerolog.Logger
}

func NewClient(username string, server ServerConfig) *Client {
	return &Client{
		Username: username,
		server:   server,
		logger:   log.With().Str("player", username).Logger(),
	}
}

// Connect dials the server, retrying indefinitely with a fixed backoff and
// logging each failure.
func (c *Client) Connect() {
	for {
		conn, _, err := websocket.DefaultDialer.Dial(c.server.WebsocketURL, nil)
		if err == nil {
			c.conn = conn
			c.logger.Info().Str("url", c.server.WebsocketURL).Msg("connected to showdown server")
			return
		}
		c.logger.Error().Err(err).Msg("connection attempt failed, retrying")
		time.Sleep(connectRetryDelay)
	}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// SendMessage sends one command line, prefixed with the current room.
func (c *Client) SendMessage(message string) error {
	if c.conn == nil {
		return fmt.Errorf("cannot send message without established websocket")
	}
	message = c.Room + "|" + message
	c.logger.Debug().Str("send", message).Msg("")
	return c.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// ReceiveMessage reads one raw multi-line server message. A zero timeout
// waits forever; otherwise a missed deadline surfaces as ErrTimeout.
func (c *Client) ReceiveMessage(timeout time.Duration) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("cannot receive message without established websocket")
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "", ErrTimeout
		}
		return "", err
	}
	c.logger.Debug().Str("recv", string(data)).Msg("")
	return string(data), nil
}

// FindMessage reads messages until one classifies as the awaited kind,
// returning its lines split into pipe-delimited tokens. A popup addressed to
// the awaited kind surfaces as *PopupError; a missed deadline as ErrTimeout.
// Everything else on the stream is skipped.
func (c *Client) FindMessage(messageType MessageType, timeout time.Duration) ([][]string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		remaining := time.Duration(0)
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil, ErrTimeout
			}
		}
		message, err := c.ReceiveMessage(remaining)
		if err != nil {
			return nil, err
		}
		lines := SplitMessage(message)
		match, err := Classify(messageType, lines, c.Username, c.Room)
		if err != nil {
			return nil, err
		}
		if match {
			return lines, nil
		}
	}
}

// SplitMessage tokenizes a raw server message: newline-delimited lines, each
// pipe-delimited.
func SplitMessage(message string) [][]string {
	rawLines := strings.Split(message, "\n")
	lines := make([][]string, len(rawLines))
	for i, l := range rawLines {
		lines[i] = strings.Split(l, "|")
	}
	return lines
}

// Classify evaluates one tokenized message against the awaited kind. It
// reports a match, or a *PopupError when the server answered the awaited
// control action with a popup.
func Classify(messageType MessageType, lines [][]string, username string, room string) (bool, error) {
	first := lines[0]
	switch messageType {
	case MessageLogin:
		return len(first) > 1 && first[1] == "challstr", nil

	case MessageGames:
		if len(first) > 2 && first[1] == "popup" {
			// seen here in the wild: "Due to high load, you are limited to
			// 12 battles and team validations every 3 minutes."
			return false, &PopupError{Text: first[2]}
		}
		return len(first) > 1 && first[1] == "updatesearch", nil

	case MessageChallenge:
		if len(first) > 2 && first[1] == "popup" {
			// rate limiting, double-challenge guards and restart notices all
			// land here
			return false, &PopupError{Text: first[2]}
		}
		if len(first) > 4 && first[1] == "pm" {
			if first[2] == "!"+username && strings.Contains(first[4], "you can't challenge others right now") {
				return false, &PopupError{Text: first[4]}
			}
			if first[2] == " "+username && strings.Contains(first[4], "wants to battle!") {
				return true, nil
			}
		}
		return false, nil

	case MessageCancel:
		if len(first) > 2 && first[1] == "popup" {
			return false, &PopupError{Text: first[2]}
		}
		return len(first) > 4 && first[1] == "pm" &&
			first[2] == " "+username &&
			strings.Contains(first[4], "cancelled the challenge."), nil

	case MessageAccept:
		return len(first) > 4 && first[1] == "pm" &&
			first[3] == " "+username &&
			strings.Contains(first[4], "wants to battle!"), nil

	case MessageObserve:
		isRequest := len(lines) == 2 && len(lines[1]) == 3 &&
			lines[1][1] == "request" && lines[1][2] != ""
		isProtocol := false
		for _, l := range lines {
			if len(l) == 2 && l[0] == "" && l[1] == "" {
				isProtocol = true
				break
			}
		}
		return isRequest || isProtocol, nil

	case MessageLeave:
		return room != "" && strings.Contains(first[0], room) &&
			len(lines) > 1 && len(lines[1]) > 1 && lines[1][1] == "deinit", nil

	default:
		return false, nil
	}
}
