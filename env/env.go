package env

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cameronangliss/poke-env/battle"
	"github.com/cameronangliss/poke-env/showdown"
	"github.com/cameronangliss/poke-env/teams"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	initRetries        = 100
	timeBetweenRetries = 500 * time.Millisecond
	challengeBackoff   = 5 * time.Second
	spamBackoff        = 5 * time.Hour
	closeGracePeriod   = 2 * time.Second
)

// Action is one seat's action vector: length 1 in singles, length 2 in
// doubles.
type Action []int

// Config carries the immutable construction parameters of an Env.
type Config struct {
	Account1 showdown.AccountConfig
	Account2 showdown.AccountConfig
	Server   showdown.ServerConfig
	Format   string

	// Team provides one packed team per battle; nil for formats that
	// generate their own teams.
	Team teams.Builder

	// Fake suppresses codec legality checking; Strict makes illegal decodes
	// error instead of collapsing to the default order.
	Fake   bool
	Strict bool

	StartTimer bool
}

// StepResult is what both seats learn from one exchange: the new state
// snapshots, the delta rewards, and the termination classification.
type StepResult struct {
	Battles    [2]*battle.Battle
	Rewards    [2]float64
	Terminated [2]bool
	Truncated  [2]bool
}

// Env pairs two seats into a lockstep step/reset protocol against a showdown
// server. Callers drive it synchronously from their own goroutine; all
// protocol I/O happens on the seats' loop goroutines, bridged through the
// capacity-1 queues.
type Env struct {
	Format battle.Format

	fake       bool
	strict     bool
	team       teams.Builder
	startTimer bool

	agent1 *seat
	agent2 *seat

	battle1 *battle.Battle
	battle2 *battle.Battle
	toMove1 bool
	toMove2 bool

	// rewardBuffer keys last state values by battle tag; entries are
	// removed explicitly when a finished battle is detached.
	rewardBuffer map[string]float64
	rewards      RewardConfig

	matchTask chan error

	logger zerolog.Logger
}

// RewardConfig weights the reward helper's state valuation.
type RewardConfig struct {
	FaintedValue float64
	HPValue      float64
	StatusValue  float64
	VictoryValue float64
	NumberOfMons int
}

func DefaultRewardConfig() RewardConfig {
	return RewardConfig{VictoryValue: 1.0, NumberOfMons: 6}
}

func New(cfg Config) *Env {
	if cfg.Account1.Username == "" {
		cfg.Account1 = showdown.GenerateAccountConfig("env1-")
	}
	if cfg.Account2.Username == "" {
		cfg.Account2 = showdown.GenerateAccountConfig("env2-")
	}
	if cfg.Server.WebsocketURL == "" {
		cfg.Server = showdown.LocalhostServerConfig
	}
	return &Env{
		Format:       battle.ParseFormat(cfg.Format),
		fake:         cfg.Fake,
		strict:       cfg.Strict,
		team:         cfg.Team,
		startTimer:   cfg.StartTimer,
		agent1:       newSeat(cfg.Account1, cfg.Server),
		agent2:       newSeat(cfg.Account2, cfg.Server),
		rewardBuffer: make(map[string]float64),
		rewards:      DefaultRewardConfig(),
		logger:       log.With().Str("env", cfg.Format).Logger(),
	}
}

// SetRewardConfig replaces the reward weights. Call between episodes.
func (e *Env) SetRewardConfig(cfg RewardConfig) { e.rewards = cfg }

// Agents returns both seats' usernames, first seat first.
func (e *Env) Agents() [2]string {
	return [2]string{e.agent1.player.Account.Username, e.agent2.player.Account.Username}
}

// Setup connects and logs in both seats.
func (e *Env) Setup() error {
	if err := e.agent1.player.Setup(); err != nil {
		return err
	}
	return e.agent2.player.Setup()
}

// Reset finishes off any lingering battle, starts a fresh one and blocks
// until both seats publish their first decision-point snapshot.
func (e *Env) Reset() (*battle.Battle, *battle.Battle, error) {
	if e.battle1 != nil && !e.battle1.Finished {
		if e.battle1 != e.agent1.currentBattle() {
			return nil, nil, &DesyncError{Player: e.agent1.player.Account.Username, Tag: e.battle1.Tag}
		}
		if e.toMove1 {
			e.toMove1 = false
			e.agent1.orderQueue <- ForfeitOrder{}
			if e.toMove2 {
				e.toMove2 = false
				e.agent2.orderQueue <- DefaultOrder{}
			}
		} else {
			if !e.toMove2 {
				return nil, nil, &DesyncError{Player: e.agent2.player.Account.Username, Tag: e.battle1.Tag}
			}
			e.toMove2 = false
			e.agent2.orderQueue <- ForfeitOrder{}
		}
		// consume the terminal hand-off from both seats
		<-e.agent1.battleQueue
		<-e.agent2.battleQueue
	}

	// both seat loops must be fully done with the connections, room teardown
	// included, before the next handshake reads from them
	e.waitMatch()

	e.startMatch()

	count := initRetries
	for e.agent1.currentBattle() == nil || e.agent2.currentBattle() == nil {
		if count == 0 {
			return nil, nil, ErrNotChallenging
		}
		count--
		time.Sleep(timeBetweenRetries)
	}

	e.battle1 = <-e.agent1.battleQueue
	e.battle2 = <-e.agent2.battleQueue
	e.toMove1 = true
	e.toMove2 = true
	return e.battle1, e.battle2, nil
}

// Step decodes and submits each to-move seat's action, then race-waits for
// the next snapshots. A seat whose opponent caused no new decision for it
// carries its previous snapshot forward.
func (e *Env) Step(action1 Action, action2 Action) (*StepResult, error) {
	if e.battle1 == nil || e.battle2 == nil {
		return nil, fmt.Errorf("step called before reset")
	}
	if e.battle1.Finished || e.battle2.Finished {
		return nil, fmt.Errorf("step called on a finished battle; call reset")
	}

	if e.toMove1 {
		e.toMove1 = false
		order, err := e.actionToOrder(action1, e.battle1)
		if err != nil {
			return nil, err
		}
		e.agent1.orderQueue <- order
	}
	if e.toMove2 {
		e.toMove2 = false
		order, err := e.actionToOrder(action2, e.battle2)
		if err != nil {
			return nil, err
		}
		e.agent2.orderQueue <- order
	}

	next1, ok1 := e.agent1.raceGet(e.agent1.waiting, e.agent2.tryingAgain)
	next2, ok2 := e.agent2.raceGet(e.agent2.waiting, e.agent1.tryingAgain)
	e.toMove1 = ok1
	e.toMove2 = ok2
	clearSignal(e.agent1.waiting)
	clearSignal(e.agent2.waiting)
	if !ok1 {
		clearSignal(e.agent2.tryingAgain)
		next1 = e.battle1
	}
	if !ok2 {
		clearSignal(e.agent1.tryingAgain)
		next2 = e.battle2
	}
	e.battle1 = next1
	e.battle2 = next2

	res := &StepResult{Battles: [2]*battle.Battle{next1, next2}}
	res.Rewards[0] = e.RewardHelper(next1)
	res.Rewards[1] = e.RewardHelper(next2)
	res.Terminated[0], res.Truncated[0] = CalcTermTrunc(next1)
	res.Terminated[1], res.Truncated[1] = CalcTermTrunc(next2)
	for i, b := range res.Battles {
		if res.Terminated[i] || res.Truncated[i] {
			delete(e.rewardBuffer, b.Tag)
		}
	}
	return res, nil
}

// Close force-forfeits any unfinished battle, waits for the match task and
// drains every queue. An order still unconsumed after the grace period means
// a caller is mid-decision, which is an error.
func (e *Env) Close() error {
	if e.battle1 != nil && !e.battle1.Finished {
		if len(e.agent1.orderQueue) > 0 || len(e.agent2.orderQueue) > 0 {
			time.Sleep(closeGracePeriod)
			if len(e.agent1.orderQueue) > 0 || len(e.agent2.orderQueue) > 0 {
				return fmt.Errorf("the agent is still sending actions; close only after training is over")
			}
		}
		e.agent1.drain()
		e.agent2.drain()
		if e.toMove1 {
			e.toMove1 = false
			e.agent1.orderQueue <- ForfeitOrder{}
			if e.toMove2 {
				e.toMove2 = false
				e.agent2.orderQueue <- DefaultOrder{}
			}
		} else if e.toMove2 {
			e.toMove2 = false
			e.agent2.orderQueue <- ForfeitOrder{}
		} else {
			// no seat can be handed a forfeit; waiting on the match task
			// would hang forever
			return &DesyncError{Player: e.agent1.player.Account.Username, Tag: e.battle1.Tag}
		}
	}

	e.waitMatch()

	e.battle1 = nil
	e.battle2 = nil
	e.agent1.setBattle(nil)
	e.agent2.setBattle(nil)
	e.agent1.drain()
	e.agent2.drain()
	return nil
}

// waitMatch blocks until the current match task finishes, then clears it.
func (e *Env) waitMatch() {
	if e.matchTask == nil {
		return
	}
	if err := <-e.matchTask; err != nil {
		e.logger.Warn().Err(err).Msg("match task finished with error")
	}
	e.matchTask = nil
}

// Done reports whether the match task has completed, waiting up to timeout
// when it has not.
func (e *Env) Done(timeout time.Duration) bool {
	if e.matchTask == nil {
		return true
	}
	select {
	case err := <-e.matchTask:
		if err != nil {
			e.logger.Warn().Err(err).Msg("match task finished with error")
		}
		e.matchTask = nil
		return true
	case <-time.After(timeout):
		return false
	}
}

func (e *Env) startMatch() {
	e.matchTask = make(chan error, 1)
	go func() {
		e.matchTask <- e.runMatch()
	}()
}

// runMatch performs the challenge handshake with popup-aware backoff, joins
// both seats into the room and plays the battle out on both.
func (e *Env) runMatch() error {
	opponent := e.agent2.player.Account.Username
	challenger := e.agent1.player.Account.Username
	team := ""
	if e.team != nil {
		team = e.team.Yield()
	}

	var room string
	for {
		err := e.agent1.player.Challenge(opponent, e.Format.Name, team)
		if err == nil {
			room, err = e.agent2.player.Accept(challenger, team)
		}
		if err == nil {
			break
		}
		var popup *showdown.PopupError
		if !errors.As(err, &popup) {
			return err
		}
		e.logger.Warn().Str("popup", popup.Text).Msg("challenge rejected, backing off")
		if cancelErr := e.agent1.player.Cancel(opponent); cancelErr != nil {
			var cancelPopup *showdown.PopupError
			if !errors.As(cancelErr, &cancelPopup) {
				return cancelErr
			}
			e.logger.Warn().Str("popup", cancelPopup.Text).Msg("cancel rejected")
		}
		if strings.Contains(popup.Text, "Due to spam from your internet provider") {
			e.logger.Info().Dur("backoff", spamBackoff).Msg("rate limited by provider, waiting it out")
			time.Sleep(spamBackoff)
		} else {
			time.Sleep(challengeBackoff)
		}
	}

	done1 := make(chan error, 1)
	done2 := make(chan error, 1)
	go func() { done1 <- e.agent1.run(room, e.Format, e.startTimer) }()
	go func() { done2 <- e.agent2.run(room, e.Format, e.startTimer) }()
	err1 := <-done1
	err2 := <-done2
	if err1 != nil {
		return err1
	}
	return err2
}

// actionToOrder dispatches to the format's codec.
func (e *Env) actionToOrder(action Action, b *battle.Battle) (Order, error) {
	if e.Format.Doubles {
		if len(action) != 2 {
			return nil, &InvalidActionError{Player: b.Username, Tag: b.Tag, Reason: "doubles actions must have two elements"}
		}
		return DoublesActionToOrder([2]int{action[0], action[1]}, b, e.fake, e.strict)
	}
	if len(action) != 1 {
		return nil, &InvalidActionError{Player: b.Username, Tag: b.Tag, Reason: "singles actions must have one element"}
	}
	return SinglesActionToOrder(action[0], b, e.fake, e.strict)
}

// OrderToAction is the inverse dispatch, exposed for policy code that works
// on orders.
func (e *Env) OrderToAction(order Order, b *battle.Battle) (Action, error) {
	if e.Format.Doubles {
		vec, err := DoublesOrderToAction(order, b, e.fake, e.strict)
		if err != nil {
			return nil, err
		}
		return Action{vec[0], vec[1]}, nil
	}
	a, err := SinglesOrderToAction(order, b, e.fake, e.strict)
	if err != nil {
		return nil, err
	}
	return Action{a}, nil
}

// CalcTermTrunc classifies how a finished battle ended: terminated when
// exactly one side was wiped out, truncated for every other finish (tie,
// forfeit, external stop).
func CalcTermTrunc(b *battle.Battle) (terminated bool, truncated bool) {
	if !b.Finished {
		return false, false
	}
	remainingMine := b.TeamSize - b.FaintedCount()
	remainingTheirs := b.TeamSize - b.OpponentFaintedCount()
	if (remainingMine == 0) != (remainingTheirs == 0) {
		return true, false
	}
	return false, true
}
