// Package game coordinates the single shared Tic-Tac-Toe match: slot
// assignment, turn ordering, move validation, win/draw evaluation, score
// recording, and dropout recovery. New code — the teacher has no board
// game of its own — grounded directly against the component contract
// (rather than any one teacher file) and wired through the already-ported
// pkg/board, pkg/matchstore, and pkg/credstore packages plus the
// broadcast/session-removal idiom from pkg/server/descriptor.go.
package game

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/northlane/tactoechat/pkg/board"
	"github.com/northlane/tactoechat/pkg/credstore"
	"github.com/northlane/tactoechat/pkg/matchstore"
	"github.com/northlane/tactoechat/pkg/session"
)

// Broadcaster is the subset of *session.Manager the coordinator needs, kept
// as an interface so tests can substitute a recording fake.
type Broadcaster interface {
	SendToAll(msg string, exclude ...*session.Session)
}

// Coordinator owns the single match's authoritative state.
type Coordinator struct {
	mu    sync.Mutex
	board *board.Board
	store *matchstore.Store
	creds *credstore.Store
	conns Broadcaster

	player1 *session.Session // slot 1, plays cross
	player2 *session.Session // slot 2, plays naught
	turn    *session.Session // whose move it is; nil before !startgame

	// OnBoardChange, if set, is called after every state-changing move
	// and reset with the board's serialized form and the current mover's
	// username ("" once no game is in progress). Used to feed the
	// read-only spectator websocket; nil is a valid no-op default.
	OnBoardChange func(boardStr, turn string)

	// OnGameFinished, if set, is called once per concluded match with one
	// of "cross_wins", "naught_wins", "draw", or "dropout". Used to drive
	// the games_finished_total metric; nil is a valid no-op default.
	OnGameFinished func(outcome string)
}

// New creates a coordinator bound to the given board, persistent match
// store, credential store (for W/L/D updates), and broadcaster.
func New(b *board.Board, store *matchstore.Store, creds *credstore.Store, conns Broadcaster) *Coordinator {
	return &Coordinator{board: b, store: store, creds: creds, conns: conns}
}

// notifyBoardChange invokes OnBoardChange, if set, with the board's current
// serialized form and turnName. Safe to call with c.mu held or released.
func (c *Coordinator) notifyBoardChange(turnName string) {
	if c.OnBoardChange != nil {
		c.OnBoardChange(c.board.String(), turnName)
	}
}

// Join fills the first empty slot with s. Refuses if s already holds a
// slot or both slots are taken.
func (c *Coordinator) Join(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player1 == s || c.player2 == s {
		s.Send("[Server]: You are already in the game.")
		return
	}
	switch {
	case c.player1 == nil:
		c.player1 = s
		c.store.SetPlayer1(s.Username())
		s.SetSlot(session.Slot1)
		s.SetState(session.Playing)
		s.Send("!player1")
	case c.player2 == nil:
		c.player2 = s
		c.store.SetPlayer2(s.Username())
		s.SetSlot(session.Slot2)
		s.SetState(session.Playing)
		s.Send("!player2")
	default:
		s.Send("[Server]: The game is full.")
	}
}

// StartGame begins the match. Only player1 may start it, and both slots
// must be filled.
func (c *Coordinator) StartGame(s *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player1 != s {
		s.Send("[Server]: Only player1 may start the game.")
		return
	}
	if c.player1 == nil || c.player2 == nil {
		s.Send("[Server]: Waiting for a second player.")
		return
	}
	c.turn = c.player1
	c.store.SetCurrentTurn(c.player1.Username())
	c.player1.Send("!yourturn")
	c.player2.Send("!waitturn")
	c.conns.SendToAll("[Server]: Game has started.")
	c.notifyBoardChange(c.player1.Username())
}

// Move validates and applies a !move <i> command from s, in the order
// is-it-my-turn → parse/range → cell-blank, then evaluates and fans out the
// result.
func (c *Coordinator) Move(s *session.Session, args string) {
	c.mu.Lock()

	if c.turn != s {
		c.mu.Unlock()
		s.Send("[Server]: Not your turn.")
		return
	}

	idx, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || idx < 0 || idx > 8 {
		c.mu.Unlock()
		s.Send("[Server]: Usage: !move <0-8>.")
		return
	}

	mark := board.Cross
	opponent := c.player2
	if s == c.player2 {
		mark = board.Naught
		opponent = c.player1
	}

	if !c.board.SetTile(idx, mark) {
		c.mu.Unlock()
		s.Send("[Server]: That tile is already taken.")
		return
	}

	symbol := "X"
	if mark == board.Naught {
		symbol = "O"
	}
	c.conns.SendToAll(fmt.Sprintf("!settile %d %s", idx, symbol))

	result := c.board.GetGameState()
	switch result {
	case board.Playing:
		c.turn = opponent
		mover, waiter := opponent, s
		c.store.SetCurrentTurn(opponent.Username())
		turnName := opponent.Username()
		c.mu.Unlock()
		mover.Send("!yourturn")
		waiter.Send("!waitturn")
		c.notifyBoardChange(turnName)
	case board.CrossWins:
		c.finish("cross_wins", crossWinsMsg, c.player1, c.player2)
	case board.NaughtWins:
		c.finish("naught_wins", naughtWinsMsg, c.player2, c.player1)
	case board.Draw:
		c.finishDraw()
	}
}

const (
	crossWinsMsg  = "X wins!"
	naughtWinsMsg = "O wins!"
)

// finish is called with c.mu held; it records the decisive result, fans
// out the end-of-game sequence, and unlocks before returning.
func (c *Coordinator) finish(outcome, msg string, winner, loser *session.Session) {
	c.creds.IncrementWins(winner.Username())
	c.creds.IncrementLosses(loser.Username())
	if c.OnGameFinished != nil {
		c.OnGameFinished(outcome)
	}
	c.endOfGameFanout(fmt.Sprintf("[Game Over]: %s", msg))
}

func (c *Coordinator) finishDraw() {
	if c.player1 != nil {
		c.creds.IncrementDraws(c.player1.Username())
	}
	if c.player2 != nil {
		c.creds.IncrementDraws(c.player2.Username())
	}
	if c.OnGameFinished != nil {
		c.OnGameFinished("draw")
	}
	c.endOfGameFanout("[Game Over]: It's a draw!")
}

// endOfGameFanout implements the ordering invariant: !settile (already
// sent by the caller) → [Game Over] → !resetboard → private [Result] lines
// → !leavegame, then both sessions return to Chatting and the match
// resets. Must be called with c.mu held; unlocks before returning.
func (c *Coordinator) endOfGameFanout(gameOverMsg string) {
	p1, p2 := c.player1, c.player2
	c.notifyBoardChange("")
	c.conns.SendToAll(gameOverMsg)
	c.conns.SendToAll("!resetboard")

	for _, p := range []*session.Session{p1, p2} {
		if p == nil {
			continue
		}
		st, err := c.creds.GetStats(p.Username())
		if err == nil {
			p.Send(fmt.Sprintf("[Result] Wins: %d  Losses: %d  Draws: %d", st.Wins, st.Losses, st.Draws))
		}
	}
	for _, p := range []*session.Session{p1, p2} {
		if p == nil {
			continue
		}
		p.SetState(session.Chatting)
		p.SetSlot(session.NoSlot)
		p.Send("!leavegame")
	}
	c.resetLocked()
	c.mu.Unlock()
	c.notifyBoardChange("")
}

// resetLocked clears both slots, the turn, and the board. Must be called
// with c.mu held.
func (c *Coordinator) resetLocked() {
	c.player1 = nil
	c.player2 = nil
	c.turn = nil
	c.board.Reset()
	c.store.Clear()
}

// HandleDropout runs dropout recovery when a Playing session s terminates
// for any reason (transport failure, !exit, moderator kick). It clears
// whichever slot s held; if that empties either slot, the whole match
// resets and any remaining participant is returned to Chatting. No
// automatic forfeit is ever recorded.
func (c *Coordinator) HandleDropout(s *session.Session) {
	c.mu.Lock()

	var remaining *session.Session
	switch {
	case c.player1 == s:
		remaining = c.player2
		c.player1 = nil
	case c.player2 == s:
		remaining = c.player1
		c.player2 = nil
	default:
		c.mu.Unlock()
		return // s was never in the match; nothing to do
	}

	gameWasInProgress := c.turn != nil
	c.conns.SendToAll(fmt.Sprintf("[Server]: %s left the Tic-Tac-Toe game.", s.Username()))
	c.conns.SendToAll("!resetboard")
	if remaining != nil {
		remaining.SetState(session.Chatting)
		remaining.SetSlot(session.NoSlot)
		remaining.Send("!leavegame")
	}
	c.resetLocked()
	if gameWasInProgress && c.OnGameFinished != nil {
		c.OnGameFinished("dropout")
	}
	c.mu.Unlock()
	c.notifyBoardChange("")
}

// LeaveGame handles an explicit !leavegame-equivalent mid-game exit that
// does not close the transport (e.g. a future non-!exit leave verb); today
// dropout recovery is triggered uniformly through HandleDropout per the
// spec's treatment of !exit mid-game as equivalent to a disconnect.
func (c *Coordinator) LeaveGame(s *session.Session) {
	c.HandleDropout(s)
}

// Snapshot reports the current slot occupants and turn holder's username,
// for diagnostics (e.g. the admin API's status endpoint). Usernames are
// empty when a slot is unoccupied.
func (c *Coordinator) Snapshot() (player1, player2, turn string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player1 != nil {
		player1 = c.player1.Username()
	}
	if c.player2 != nil {
		player2 = c.player2.Username()
	}
	if c.turn != nil {
		turn = c.turn.Username()
	}
	return
}
