package env

import (
	"sync"

	"github.com/cameronangliss/poke-env/battle"
	"github.com/cameronangliss/poke-env/showdown"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// seat is one side of a match: a player connection, the capacity-1 hand-off
// queues bridging its loop goroutine to the synchronous caller, and the
// companion signals used to unblock the caller's race-wait.
type seat struct {
	player *showdown.Player

	// battleQueue publishes a state snapshot at each decision point;
	// orderQueue carries the caller's answer back. Both are capacity 1 so
	// the exchange is a strict hand-off.
	battleQueue chan *battle.Battle
	orderQueue  chan Order

	// waiting latches when this seat received a wait request (no decision
	// for it this beat); tryingAgain latches when the server rejected its
	// previous choice and it is re-deciding.
	waiting     chan struct{}
	tryingAgain chan struct{}

	// battle is the seat's live battle, written by the loop goroutine and
	// polled by the caller during reset.
	mu     sync.Mutex
	battle *battle.Battle

	logger zerolog.Logger
}

func (s *seat) setBattle(b *battle.Battle) {
	s.mu.Lock()
	s.battle = b
	s.mu.Unlock()
}

func (s *seat) currentBattle() *battle.Battle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.battle
}

func newSeat(account showdown.AccountConfig, server showdown.ServerConfig) *seat {
	return &seat{
		player:      showdown.NewPlayer(account, server),
		battleQueue: make(chan *battle.Battle, 1),
		orderQueue:  make(chan Order, 1),
		waiting:     make(chan struct{}, 1),
		tryingAgain: make(chan struct{}, 1),
		logger:      log.With().Str("seat", account.Username).Logger(),
	}
}

// run plays one battle in the given room to completion: observe, publish a
// snapshot at each decision point, send back the order the caller chose.
func (s *seat) run(room string, format battle.Format, startTimer bool) error {
	if err := s.player.Join(room); err != nil {
		return err
	}
	if startTimer {
		if err := s.player.TimerOn(); err != nil {
			return err
		}
	}

	var b *battle.Battle
	for {
		next, req, retry, err := s.player.Observe(b, format)
		if err != nil {
			return err
		}
		b = next
		s.setBattle(b)
		if retry {
			signal(s.tryingAgain)
		}
		if b.Finished {
			// final hand-off so the caller sees the terminal state
			s.battleQueue <- b
			return s.player.Leave()
		}
		if req == nil {
			continue
		}
		if req.Wait {
			signal(s.waiting)
			continue
		}

		s.battleQueue <- b
		order := <-s.orderQueue
		if _, ok := order.(ForfeitOrder); ok {
			if err := s.player.Forfeit(); err != nil {
				return err
			}
			continue
		}
		if err := s.player.Choose(order.Message(), b.RqID); err != nil {
			return err
		}
	}
}

// raceGet waits for the seat's next snapshot, unblocking early when any
// companion signal latches. The losing arms of the select are simply not
// taken; nothing leaks.
func (s *seat) raceGet(companions ...chan struct{}) (*battle.Battle, bool) {
	switch len(companions) {
	case 0:
		return <-s.battleQueue, true
	case 1:
		select {
		case b := <-s.battleQueue:
			return b, true
		case <-companions[0]:
			return nil, false
		}
	default:
		select {
		case b := <-s.battleQueue:
			return b, true
		case <-companions[0]:
			return nil, false
		case <-companions[1]:
			return nil, false
		}
	}
}

func (s *seat) drain() {
	for {
		select {
		case <-s.battleQueue:
		case <-s.orderQueue:
		default:
			return
		}
	}
}

// signal latches a companion event without blocking; a latch already set
// stays set.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// clearSignal resets a latch.
func clearSignal(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
