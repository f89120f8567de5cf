package showdown

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeConn feeds a scripted inbox to the client and records what it sent.
type fakeConn struct {
	inbox   []string
	sent    []string
	readErr error
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	if len(c.inbox) == 0 {
		if c.readErr != nil {
			return 0, nil, c.readErr
		}
		return 0, nil, io.EOF
	}
	msg := c.inbox[0]
	c.inbox = c.inbox[1:]
	return websocket.TextMessage, []byte(msg), nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.sent = append(c.sent, string(data))
	return nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) Close() error                    { return nil }

type timeoutError struct{}

func (timeoutError) Error() string   { return "read deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func newFakeClient(username string, conn *fakeConn) *Client {
	c := NewClient(username, LocalhostServerConfig)
	c.conn = conn
	return c
}

func TestSendMessagePrefixesRoom(t *testing.T) {
	conn := &fakeConn{}
	c := newFakeClient("alice", conn)

	if err := c.SendMessage("/timer on"); err != nil {
		t.Fatalf("send failed: %s", err)
	}
	c.Room = "battle-gen8randombattle-1"
	if err := c.SendMessage("/forfeit"); err != nil {
		t.Fatalf("send failed: %s", err)
	}

	if conn.sent[0] != "|/timer on" {
		t.Fatalf("lobby message sent wrong: %q", conn.sent[0])
	}
	if conn.sent[1] != "battle-gen8randombattle-1|/forfeit" {
		t.Fatalf("room message sent wrong: %q", conn.sent[1])
	}
}

func TestSendMessageWithoutConnection(t *testing.T) {
	c := NewClient("alice", LocalhostServerConfig)
	if err := c.SendMessage("/trn alice,0,"); err == nil {
		t.Fatalf("expected an error without an established connection")
	}
}

func TestReceiveMessageTimeout(t *testing.T) {
	conn := &fakeConn{readErr: timeoutError{}}
	c := newFakeClient("alice", conn)

	_, err := c.ReceiveMessage(10 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %s", err)
	}
}

func TestReceiveMessagePassesOtherErrors(t *testing.T) {
	conn := &fakeConn{}
	c := newFakeClient("alice", conn)

	_, err := c.ReceiveMessage(0)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected the raw read error, got %s", err)
	}
}

func TestFindMessageSkipsUnrelated(t *testing.T) {
	conn := &fakeConn{inbox: []string{
		"|updateuser| alice|1|102|{}",
		"|pm| bob| alice|hello there",
		"|challstr|4|deadbeef",
	}}
	c := newFakeClient("alice", conn)

	lines, err := c.FindMessage(MessageLogin, 0)
	if err != nil {
		t.Fatalf("find failed: %s", err)
	}
	if lines[0][1] != "challstr" || lines[0][3] != "deadbeef" {
		t.Fatalf("wrong message matched: %+v", lines[0])
	}
}

func TestFindMessageSurfacesPopup(t *testing.T) {
	conn := &fakeConn{inbox: []string{
		"|popup|You are already challenging someone.",
	}}
	c := newFakeClient("alice", conn)

	_, err := c.FindMessage(MessageChallenge, 0)
	var popup *PopupError
	if !errors.As(err, &popup) {
		t.Fatalf("expected a popup error, got %s", err)
	}
	if popup.Text != "You are already challenging someone." {
		t.Fatalf("popup text lost: %q", popup.Text)
	}
}

func TestSplitMessage(t *testing.T) {
	lines := SplitMessage(">battle-gen8randombattle-1\n|turn|2\n|win|alice")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0][0] != ">battle-gen8randombattle-1" {
		t.Fatalf("room header lost: %+v", lines[0])
	}
	if lines[1][1] != "turn" || lines[1][2] != "2" {
		t.Fatalf("tokens split wrong: %+v", lines[1])
	}
}

func TestClassifyChallenge(t *testing.T) {
	incoming := SplitMessage("|pm| alice| bob|/challenge gen8randombattle wants to battle!")
	// outgoing challenge confirmation names this player in the from field
	match, err := Classify(MessageChallenge, incoming, "alice", "")
	if err != nil || !match {
		t.Fatalf("challenge confirmation not matched: %v %s", match, err)
	}

	blocked := SplitMessage("|pm|!alice| bob|you can't challenge others right now")
	_, err = Classify(MessageChallenge, blocked, "alice", "")
	var popup *PopupError
	if !errors.As(err, &popup) {
		t.Fatalf("challenge block should surface as a popup, got %s", err)
	}

	chat := SplitMessage("|pm| bob| alice|good luck!")
	match, err = Classify(MessageChallenge, chat, "alice", "")
	if err != nil || match {
		t.Fatalf("plain pm should not match: %v %s", match, err)
	}
}

func TestClassifyAccept(t *testing.T) {
	incoming := SplitMessage("|pm| bob| alice|/challenge gen8randombattle wants to battle!")
	match, err := Classify(MessageAccept, incoming, "alice", "")
	if err != nil || !match {
		t.Fatalf("incoming challenge not matched: %v %s", match, err)
	}
}

func TestClassifyObserve(t *testing.T) {
	request := SplitMessage(">battle-gen8randombattle-1\n|request|{\"rqid\":3}")
	match, err := Classify(MessageObserve, request, "alice", "battle-gen8randombattle-1")
	if err != nil || !match {
		t.Fatalf("request message not matched: %v %s", match, err)
	}

	protocol := SplitMessage(">battle-gen8randombattle-1\n|\n|turn|2")
	match, err = Classify(MessageObserve, protocol, "alice", "battle-gen8randombattle-1")
	if err != nil || !match {
		t.Fatalf("protocol batch not matched: %v %s", match, err)
	}

	chat := SplitMessage(">battle-gen8randombattle-1\n|c|alice|hi")
	match, err = Classify(MessageObserve, chat, "alice", "battle-gen8randombattle-1")
	if err != nil || match {
		t.Fatalf("chat should not match observe: %v %s", match, err)
	}
}

func TestClassifyLeave(t *testing.T) {
	deinit := SplitMessage(">battle-gen8randombattle-1\n|deinit")
	match, err := Classify(MessageLeave, deinit, "alice", "battle-gen8randombattle-1")
	if err != nil || !match {
		t.Fatalf("deinit not matched: %v %s", match, err)
	}

	other := SplitMessage(">battle-gen8randombattle-9\n|deinit")
	match, err = Classify(MessageLeave, other, "alice", "battle-gen8randombattle-1")
	if err != nil || match {
		t.Fatalf("deinit for another room should not match")
	}
}

func TestClassifyGames(t *testing.T) {
	games := SplitMessage(`|updatesearch|{"searching":[],"games":null}`)
	match, err := Classify(MessageGames, games, "alice", "")
	if err != nil || !match {
		t.Fatalf("updatesearch not matched: %v %s", match, err)
	}

	popupMsg := SplitMessage("|popup|Due to high load, you are limited to 12 battles and team validations every 3 minutes.")
	_, err = Classify(MessageGames, popupMsg, "alice", "")
	var popup *PopupError
	if !errors.As(err, &popup) {
		t.Fatalf("load popup should surface, got %s", err)
	}
}
