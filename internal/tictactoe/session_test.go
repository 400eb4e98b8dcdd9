package tictactoe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

const (
	playerA = "conn-a"
	playerB = "conn-b"
)

// startedSession returns a session of the given size with A as X and B as O, already in play.
func startedSession(t *testing.T, size int) *Session {
	t.Helper()

	session := NewSession(size)

	_, symbol, err := session.Join(playerA)
	require.NoError(t, err)
	require.Equal(t, entity.PlayerX, symbol)

	_, symbol, err = session.Join(playerB)
	require.NoError(t, err)
	require.Equal(t, entity.PlayerO, symbol)

	require.NoError(t, session.Start(playerA))

	return session
}

func TestSession_Join(t *testing.T) {
	t.Run("Players fill seats in order and the second makes the room ready", func(t *testing.T) {
		// Given: a new session
		session := NewSession(3)
		assert.Equal(t, entity.PhaseAwaitingPlayers, session.State().Phase)

		// When: the first player joins
		seat, symbol, err := session.Join(playerA)

		// Then: they take seat 0 as X and the room still waits
		require.NoError(t, err)
		assert.Equal(t, 0, seat)
		assert.Equal(t, entity.PlayerX, symbol)
		assert.Equal(t, entity.PhaseAwaitingPlayers, session.State().Phase)

		// When: the second player joins
		seat, symbol, err = session.Join(playerB)

		// Then: they take seat 1 as O and the room is ready
		require.NoError(t, err)
		assert.Equal(t, 1, seat)
		assert.Equal(t, entity.PlayerO, symbol)
		assert.Equal(t, entity.PhaseReadyToStart, session.State().Phase)
		assert.Equal(t, []string{playerA, playerB}, session.Seats())
	})

	t.Run("Joining twice is a no-op", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)

		seat, symbol, err := session.Join(playerA)

		require.NoError(t, err)
		assert.Equal(t, 0, seat)
		assert.Equal(t, entity.PlayerX, symbol)
		assert.Equal(t, []string{playerA}, session.Seats())
	})

	t.Run("Third player is turned away", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)
		_, _, err = session.Join(playerB)
		require.NoError(t, err)

		_, _, err = session.Join("conn-c")

		require.ErrorIs(t, err, apperror.ErrRoomFull)
		assert.Equal(t, []string{playerA, playerB}, session.Seats())
	})

	t.Run("Empty connection id is never seated", func(t *testing.T) {
		session := NewSession(3)

		assert.False(t, session.IsSeated(""))

		assert.NotContains(t, session.symbols, "")
	})

	t.Run("Size is clamped", func(t *testing.T) {
		assert.Equal(t, entity.MinBoardSize, NewSession(1).Size())
		assert.Equal(t, entity.MaxBoardSize, NewSession(99).Size())
	})
}

func TestSession_Start(t *testing.T) {
	t.Run("Start needs two seated players", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)

		err = session.Start(playerA)

		require.ErrorIs(t, err, apperror.ErrInvalidPhase)
		assert.Equal(t, entity.PhaseAwaitingPlayers, session.State().Phase)
	})

	t.Run("Outsider cannot start", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)
		_, _, err = session.Join(playerB)
		require.NoError(t, err)

		require.ErrorIs(t, session.Start("stranger"), apperror.ErrNotSeated)
		assert.Equal(t, entity.PhaseReadyToStart, session.State().Phase)
	})

	t.Run("Starting twice is rejected", func(t *testing.T) {
		session := startedSession(t, 3)

		require.ErrorIs(t, session.Start(playerB), apperror.ErrNotReadyToStart)
		assert.Equal(t, entity.PhaseInProgress, session.State().Phase)
	})
}

func TestSession_Move(t *testing.T) {
	t.Run("Diagonal wins on 3x3 and further moves are rejected", func(t *testing.T) {
		// Given: a started 3x3 game
		session := startedSession(t, 3)

		// When: A completes the main diagonal
		require.NoError(t, session.Move(playerA, 0, 0))
		require.NoError(t, session.Move(playerB, 0, 1))
		require.NoError(t, session.Move(playerA, 1, 1))
		require.NoError(t, session.Move(playerB, 1, 0))
		require.NoError(t, session.Move(playerA, 2, 2))

		// Then: A has won and the game is over
		state := session.State()
		assert.Equal(t, entity.PlayerX, state.Winner)
		assert.True(t, state.IsGameOver())
		assert.False(t, state.IsDraw)
		assert.Equal(t, entity.PhaseOver, state.Phase)

		// Then: the next move is rejected without touching the board
		err := session.Move(playerB, 2, 0)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, state, session.State())
	})

	t.Run("Draw ends the game without a winner", func(t *testing.T) {
		session := startedSession(t, 3)

		// X O X
		// X O O
		// O X X
		moves := []struct {
			conn     string
			row, col int
		}{
			{playerA, 0, 0}, {playerB, 0, 1}, {playerA, 0, 2},
			{playerB, 1, 1}, {playerA, 1, 0}, {playerB, 1, 2},
			{playerA, 2, 1}, {playerB, 2, 0}, {playerA, 2, 2},
		}
		for _, m := range moves {
			require.NoError(t, session.Move(m.conn, m.row, m.col))
		}

		state := session.State()
		assert.True(t, state.IsDraw)
		assert.Equal(t, entity.EmptyCell, state.Winner)
		assert.True(t, state.IsGameOver())
		assert.Equal(t, entity.PhaseOver, state.Phase)
	})

	t.Run("Turns alternate starting with X", func(t *testing.T) {
		session := startedSession(t, 5)
		assert.Equal(t, entity.PlayerX, session.State().CurrentPlayer)

		require.NoError(t, session.Move(playerA, 0, 0))
		assert.Equal(t, entity.PlayerO, session.State().CurrentPlayer)

		require.NoError(t, session.Move(playerB, 4, 4))
		assert.Equal(t, entity.PlayerX, session.State().CurrentPlayer)

		require.NoError(t, session.Move(playerA, 0, 4))
		assert.Equal(t, entity.PlayerO, session.State().CurrentPlayer)
	})

	t.Run("Rejected moves leave the state untouched", func(t *testing.T) {
		session := startedSession(t, 3)
		require.NoError(t, session.Move(playerA, 1, 1))

		before := session.State()

		cases := []struct {
			name     string
			conn     string
			row, col int
			err      error
		}{
			{name: "out of turn", conn: playerA, row: 0, col: 0, err: apperror.ErrNotYourTurn},
			{name: "occupied cell", conn: playerB, row: 1, col: 1, err: apperror.ErrCellOccupied},
			{name: "row below range", conn: playerB, row: -1, col: 0, err: apperror.ErrCellOutOfRange},
			{name: "col above range", conn: playerB, row: 0, col: 3, err: apperror.ErrCellOutOfRange},
			{name: "not seated", conn: "stranger", row: 0, col: 0, err: apperror.ErrNotSeated},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := session.Move(tc.conn, tc.row, tc.col)

				require.ErrorIs(t, err, tc.err)
				assert.Equal(t, before, session.State())
			})
		}
	})

	t.Run("Moves before start are rejected", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)
		_, _, err = session.Join(playerB)
		require.NoError(t, err)

		err = session.Move(playerA, 0, 0)

		require.ErrorIs(t, err, apperror.ErrGameNotStarted)
		require.ErrorIs(t, err, apperror.ErrInvalidMove)
		assert.Equal(t, entity.EmptyCell, session.State().Board[0][0])
	})

	t.Run("Win on a large board needs six in a row", func(t *testing.T) {
		session := startedSession(t, 8)

		for col := 0; col < 5; col++ {
			require.NoError(t, session.Move(playerA, 0, col))
			require.NoError(t, session.Move(playerB, 7, col))
		}
		assert.Equal(t, entity.EmptyCell, session.State().Winner)

		require.NoError(t, session.Move(playerA, 0, 5))

		assert.Equal(t, entity.PlayerX, session.State().Winner)
	})
}

func TestSession_Reset(t *testing.T) {
	t.Run("Reset clears the board and keeps symbols", func(t *testing.T) {
		// Given: a game with some moves
		session := startedSession(t, 4)
		require.NoError(t, session.Move(playerA, 0, 0))
		require.NoError(t, session.Move(playerB, 1, 1))

		// When: B resets
		require.NoError(t, session.Reset(playerB))

		// Then: empty board, X to move, ready to start again
		state := session.State()
		assert.Equal(t, entity.NewBoard(4), state.Board)
		assert.Equal(t, 4, state.Size)
		assert.Equal(t, entity.PlayerX, state.CurrentPlayer)
		assert.Equal(t, entity.EmptyCell, state.Winner)
		assert.False(t, state.IsDraw)
		assert.False(t, state.IsGameOver())
		assert.Equal(t, entity.PhaseReadyToStart, state.Phase)

		assert.Equal(t, map[string]entity.Symbol{playerA: entity.PlayerX, playerB: entity.PlayerO}, session.symbols)
	})

	t.Run("Reset after a finished game allows a new one", func(t *testing.T) {
		session := startedSession(t, 3)
		for _, cell := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}} {
			conn := playerA
			if session.State().CurrentPlayer == entity.PlayerO {
				conn = playerB
			}
			require.NoError(t, session.Move(conn, cell[0], cell[1]))
		}
		require.Equal(t, entity.PhaseOver, session.State().Phase)

		require.NoError(t, session.Reset(playerA))
		require.NoError(t, session.Start(playerA))
		require.NoError(t, session.Move(playerA, 2, 2))
	})

	t.Run("Reset needs both seats", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)

		require.ErrorIs(t, session.Reset(playerA), apperror.ErrNotEnoughSeats)
		require.ErrorIs(t, session.Reset("stranger"), apperror.ErrNotSeated)
	})
}

func TestSession_ChangeSize(t *testing.T) {
	t.Run("Changing size mid-game returns to setup with an empty board", func(t *testing.T) {
		// Given: a 3x3 game in progress
		session := startedSession(t, 3)
		require.NoError(t, session.Move(playerA, 1, 1))

		// When: switching to 5x5
		require.NoError(t, session.ChangeSize(playerB, 5))

		// Then: empty 5x5 board ready to start, symbols unchanged
		state := session.State()
		assert.Equal(t, 5, state.Size)
		assert.Equal(t, entity.NewBoard(5), state.Board)
		assert.Equal(t, entity.PhaseReadyToStart, state.Phase)
		assert.Equal(t, entity.PlayerX, state.CurrentPlayer)

		assert.Equal(t, entity.PlayerO, session.symbols[playerB])
	})

	t.Run("Size is clamped", func(t *testing.T) {
		session := startedSession(t, 3)

		require.NoError(t, session.ChangeSize(playerA, 100))
		assert.Equal(t, entity.MaxBoardSize, session.Size())

		require.NoError(t, session.ChangeSize(playerA, 0))
		assert.Equal(t, entity.MinBoardSize, session.Size())
	})

	t.Run("Single player may change size while waiting", func(t *testing.T) {
		session := NewSession(3)

		_, _, err := session.Join(playerA)
		require.NoError(t, err)

		require.NoError(t, session.ChangeSize(playerA, 7))
		assert.Equal(t, 7, session.Size())
		assert.Equal(t, entity.PhaseAwaitingPlayers, session.State().Phase)
	})

	t.Run("Outsider cannot change size", func(t *testing.T) {
		session := startedSession(t, 3)

		require.ErrorIs(t, session.ChangeSize("stranger", 6), apperror.ErrNotSeated)
		assert.Equal(t, 3, session.Size())
	})
}

func TestSession_Leave(t *testing.T) {
	t.Run("Leaving abandons the game and frees the seat", func(t *testing.T) {
		// Given: a game in progress
		session := startedSession(t, 3)
		require.NoError(t, session.Move(playerA, 0, 0))

		// When: A leaves
		left := session.Leave(playerA)

		// Then: the board is empty and the room waits for a player
		assert.True(t, left)
		assert.Equal(t, []string{playerB}, session.Seats())
		assert.Equal(t, entity.NewBoard(3), session.State().Board)
		assert.Equal(t, entity.PhaseAwaitingPlayers, session.State().Phase)

		// When: someone else joins
		seat, symbol, err := session.Join("conn-c")

		// Then: they take the free seat and its mark
		require.NoError(t, err)
		assert.Equal(t, 0, seat)
		assert.Equal(t, entity.PlayerX, symbol)
		assert.Equal(t, entity.PhaseReadyToStart, session.State().Phase)

		assert.Equal(t, entity.PlayerO, session.symbols[playerB])
		assert.Equal(t, entity.PlayerX, session.symbols["conn-c"])
	})

	t.Run("Leaving when not seated changes nothing", func(t *testing.T) {
		session := startedSession(t, 3)

		assert.False(t, session.Leave("stranger"))
		assert.Equal(t, entity.PhaseInProgress, session.State().Phase)
	})

	t.Run("Last one out empties the session", func(t *testing.T) {
		session := startedSession(t, 3)

		session.Leave(playerA)
		session.Leave(playerB)

		assert.True(t, session.IsEmpty())
	})
}
