package env

import (
	"errors"
	"fmt"
)

// ErrNotChallenging is returned when match initiation retries are exhausted
// without both seats reporting a battle.
var ErrNotChallenging = errors.New("agent is not challenging")

// InvalidActionError reports a strict-mode codec failure: the decoded action
// does not correspond to a legal order in the current battle state. It names
// everything needed to reproduce the failure.
type InvalidActionError struct {
	Player   string
	Tag      string
	Position int
	Action   int
	Reason   string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d from player %s in battle %s at position %d: %s",
		e.Action, e.Player, e.Tag, e.Position, e.Reason)
}

// DesyncError reports that a caller-visible battle no longer matches the
// owning seat's live battle. There is no recovery beyond restarting the
// episode.
type DesyncError struct {
	Player string
	Tag    string
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("environment and agent %s aren't synchronized on battle %s; restart the episode", e.Player, e.Tag)
}
