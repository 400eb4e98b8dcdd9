package apperror

import (
	"errors"
	"fmt"
)

// Kind is the discriminated reason attached to every rejected request.
type Kind string

const (
	KindRoomNotFound Kind = "RoomNotFound"
	KindRoomFull     Kind = "RoomFull"
	KindInvalidMove  Kind = "InvalidMove"
	KindInvalidPhase Kind = "InvalidPhase"
	KindInvalidName  Kind = "InvalidName"
	KindNotSeated    Kind = "NotSeated"
	KindBadRequest   Kind = "BadRequest"
	KindInternal     Kind = "Internal"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrInvalidMove  = errors.New("invalid move")
	ErrInvalidPhase = errors.New("invalid phase")
	ErrInvalidName  = errors.New("invalid name")
	ErrNotSeated    = errors.New("not seated in this room")
	ErrBadRequest   = errors.New("malformed request")
)

var (
	ErrGameFinished   = fmt.Errorf("%w: game is already finished", ErrInvalidMove)
	ErrGameNotStarted = fmt.Errorf("%w: game is not started", ErrInvalidMove)
	ErrCellOutOfRange = fmt.Errorf("%w: cell is out of range", ErrInvalidMove)
	ErrCellOccupied   = fmt.Errorf("%w: cell is already occupied", ErrInvalidMove)
	ErrNotYourTurn    = fmt.Errorf("%w: it's not your turn", ErrInvalidMove)

	ErrNotReadyToStart = fmt.Errorf("%w: game is not ready to start", ErrInvalidPhase)
	ErrNotEnoughSeats  = fmt.Errorf("%w: two players are required", ErrInvalidPhase)

	ErrBlankName   = fmt.Errorf("%w: name must not be blank", ErrInvalidName)
	ErrNameMissing = fmt.Errorf("%w: set a username first", ErrInvalidName)
)

// KindOf maps err onto the taxonomy. Anything unknown is KindInternal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return KindRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return KindRoomFull
	case errors.Is(err, ErrInvalidMove):
		return KindInvalidMove
	case errors.Is(err, ErrInvalidPhase):
		return KindInvalidPhase
	case errors.Is(err, ErrInvalidName):
		return KindInvalidName
	case errors.Is(err, ErrNotSeated):
		return KindNotSeated
	case errors.Is(err, ErrBadRequest):
		return KindBadRequest
	default:
		return KindInternal
	}
}
