package entity

import (
	"encoding/json"
	"fmt"
)

// Symbol is a mark on the board. EmptyCell doubles as "no winner".
type Symbol string

const (
	PlayerX   Symbol = "X"
	PlayerO   Symbol = "O"
	EmptyCell Symbol = ""
)

const (
	MinBoardSize     = 3
	MaxBoardSize     = 10
	DefaultBoardSize = 3
)

// Phase is the lifecycle stage of a game session.
type Phase string

const (
	PhaseAwaitingPlayers Phase = "awaitingPlayers"
	PhaseReadyToStart    Phase = "readyToStart"
	PhaseInProgress      Phase = "inProgress"
	PhaseOver            Phase = "over"
)

// Symbols lists the marks in seat order: seat 0 plays X, seat 1 plays O.
var Symbols = [2]Symbol{PlayerX, PlayerO}

// Opponent returns the other player's mark.
func (that Symbol) Opponent() Symbol {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

// MarshalJSON encodes an empty cell as null.
func (that Symbol) MarshalJSON() ([]byte, error) {
	if that == EmptyCell {
		return []byte("null"), nil
	}
	return json.Marshal(string(that))
}

func (that *Symbol) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = EmptyCell
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal symbol: %w", err)
	}

	*that = Symbol(raw)
	return nil
}

// Board is a size×size grid indexed [row][col].
type Board [][]Symbol

func NewBoard(size int) Board {
	board := make(Board, size)
	for i := range board {
		board[i] = make([]Symbol, size)
	}
	return board
}

func (that Board) Clone() Board {
	if that == nil {
		return nil
	}

	board := make(Board, len(that))
	for i, row := range that {
		board[i] = append([]Symbol(nil), row...)
	}
	return board
}

// ClampSize forces size into the supported range.
func ClampSize(size int) int {
	return max(MinBoardSize, min(MaxBoardSize, size))
}

// GameState is a snapshot of one game. Sessions hand out clones only.
type GameState struct {
	Board         Board
	Size          int
	CurrentPlayer Symbol
	Winner        Symbol
	IsDraw        bool
	Phase         Phase
}

func NewGameState(size int, phase Phase) GameState {
	return GameState{
		Board:         NewBoard(size),
		Size:          size,
		CurrentPlayer: PlayerX,
		Phase:         phase,
	}
}

// IsGameOver is derived from winner and draw, it is never stored.
func (that GameState) IsGameOver() bool {
	return that.Winner != EmptyCell || that.IsDraw
}

func (that GameState) Clone() GameState {
	that.Board = that.Board.Clone()
	return that
}

type gameStateJSON struct {
	Board         Board  `json:"board"`
	Size          int    `json:"gameSize"`
	CurrentPlayer Symbol `json:"currentPlayer"`
	Winner        Symbol `json:"winner"`
	IsDraw        bool   `json:"isDraw"`
	IsGameOver    bool   `json:"isGameOver"`
	Phase         Phase  `json:"phase"`
}

func (that GameState) MarshalJSON() ([]byte, error) {
	return json.Marshal(gameStateJSON{
		Board:         that.Board,
		Size:          that.Size,
		CurrentPlayer: that.CurrentPlayer,
		Winner:        that.Winner,
		IsDraw:        that.IsDraw,
		IsGameOver:    that.IsGameOver(),
		Phase:         that.Phase,
	})
}

// UnmarshalJSON ignores isGameOver, it is recomputed from winner and draw.
func (that *GameState) UnmarshalJSON(data []byte) error {
	var raw gameStateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal game state: %w", err)
	}

	*that = GameState{
		Board:         raw.Board,
		Size:          raw.Size,
		CurrentPlayer: raw.CurrentPlayer,
		Winner:        raw.Winner,
		IsDraw:        raw.IsDraw,
		Phase:         raw.Phase,
	}
	return nil
}
