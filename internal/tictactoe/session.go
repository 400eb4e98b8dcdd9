package tictactoe

import (
	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

const seatCount = len(entity.Symbols)

// Session is the authoritative state machine of one room.
// It is not safe for concurrent use; the owning room serializes access.
type Session struct {
	state   entity.GameState
	seats   [seatCount]string
	symbols map[string]entity.Symbol
}

// NewSession creates an empty session awaiting players. size is clamped to the supported range.
func NewSession(size int) *Session {
	return &Session{
		state:   entity.NewGameState(entity.ClampSize(size), entity.PhaseAwaitingPlayers),
		symbols: make(map[string]entity.Symbol, seatCount),
	}
}

// State returns a snapshot that shares nothing with the session.
func (that *Session) State() entity.GameState {
	return that.state.Clone()
}

func (that *Session) Size() int {
	return that.state.Size
}

// Seats returns the seated connection ids in seat order.
func (that *Session) Seats() []string {
	seated := make([]string, 0, seatCount)
	for _, connID := range that.seats {
		if connID != "" {
			seated = append(seated, connID)
		}
	}
	return seated
}

func (that *Session) IsEmpty() bool {
	return len(that.Seats()) == 0
}

func (that *Session) IsSeated(connID string) bool {
	return that.seatOf(connID) >= 0
}

// Join seats the connection in the lowest free seat and returns the seat and its mark.
// Joining again while seated is a no-op.
func (that *Session) Join(connID string) (int, entity.Symbol, error) {
	if seat := that.seatOf(connID); seat >= 0 {
		return seat, entity.Symbols[seat], nil
	}

	seat := that.freeSeat()
	if seat < 0 {
		return -1, entity.EmptyCell, apperror.ErrRoomFull
	}

	that.seats[seat] = connID

	if len(that.Seats()) == seatCount {
		that.assignSymbols()

		if that.state.Phase == entity.PhaseAwaitingPlayers {
			that.state.Phase = entity.PhaseReadyToStart
		}
	}

	return seat, entity.Symbols[seat], nil
}

// Leave vacates the connection's seat. A game in progress is abandoned.
func (that *Session) Leave(connID string) bool {
	seat := that.seatOf(connID)
	if seat < 0 {
		return false
	}

	that.seats[seat] = ""
	delete(that.symbols, connID)

	that.state = entity.NewGameState(that.state.Size, that.setupPhase())

	return true
}

// Start moves a ready session into play. The board is already empty.
func (that *Session) Start(connID string) error {
	if !that.IsSeated(connID) {
		return apperror.ErrNotSeated
	}

	if that.state.Phase != entity.PhaseReadyToStart {
		return apperror.ErrNotReadyToStart
	}

	that.state.Phase = entity.PhaseInProgress

	return nil
}

// Move places the caller's mark at (row, col). A rejected move leaves the state untouched.
func (that *Session) Move(connID string, row, col int) error {
	if !that.IsSeated(connID) {
		return apperror.ErrNotSeated
	}

	if err := that.validateMove(connID, row, col); err != nil {
		return err
	}

	symbol := that.symbols[connID]
	that.state.Board[row][col] = symbol
	that.updateGameStatus(symbol)

	return nil
}

// Reset clears the board at the current size. Symbols stay with their seats.
func (that *Session) Reset(connID string) error {
	if !that.IsSeated(connID) {
		return apperror.ErrNotSeated
	}

	if len(that.Seats()) < seatCount {
		return apperror.ErrNotEnoughSeats
	}

	that.state = entity.NewGameState(that.state.Size, entity.PhaseReadyToStart)

	return nil
}

// ChangeSize rebuilds an empty board at the clamped size and returns to setup.
// A game in progress ends implicitly.
func (that *Session) ChangeSize(connID string, size int) error {
	if !that.IsSeated(connID) {
		return apperror.ErrNotSeated
	}

	that.state = entity.NewGameState(entity.ClampSize(size), that.setupPhase())

	return nil
}

// validateMove - checks game over, range, occupancy and turn, in that order.
func (that *Session) validateMove(connID string, row, col int) error {
	if that.state.Phase == entity.PhaseOver || that.state.IsGameOver() {
		return apperror.ErrGameFinished
	}

	if that.state.Phase != entity.PhaseInProgress {
		return apperror.ErrGameNotStarted
	}

	size := that.state.Size
	if row < 0 || row >= size || col < 0 || col >= size {
		return apperror.ErrCellOutOfRange
	}

	if that.state.Board[row][col] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if that.symbols[connID] != that.state.CurrentPlayer {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// updateGameStatus - derives winner and draw after a move; the turn passes only if play goes on.
func (that *Session) updateGameStatus(player entity.Symbol) {
	board, size := that.state.Board, that.state.Size

	if winner := entity.DetectWinner(board, size); winner != entity.EmptyCell {
		that.state.Winner = winner
		that.state.Phase = entity.PhaseOver
		return
	}

	if entity.IsDraw(board, size) {
		that.state.IsDraw = true
		that.state.Phase = entity.PhaseOver
		return
	}

	that.state.CurrentPlayer = player.Opponent()
}

// assignSymbols binds each seated connection to its seat's mark once.
func (that *Session) assignSymbols() {
	for seat, connID := range that.seats {
		if _, ok := that.symbols[connID]; !ok {
			that.symbols[connID] = entity.Symbols[seat]
		}
	}
}

func (that *Session) setupPhase() entity.Phase {
	if len(that.Seats()) == seatCount {
		return entity.PhaseReadyToStart
	}
	return entity.PhaseAwaitingPlayers
}

func (that *Session) seatOf(connID string) int {
	if connID == "" {
		return -1
	}

	for seat, seated := range that.seats {
		if seated == connID {
			return seat
		}
	}
	return -1
}

func (that *Session) freeSeat() int {
	for seat, seated := range that.seats {
		if seated == "" {
			return seat
		}
	}
	return -1
}
