package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/pkg"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/tictactoe"
)

const maxRoomIDAttempts = 16

var errRoomIDExhausted = errors.New("could not allocate a free room id")

type nameLookup interface {
	Name(connID string) (string, bool)
}

// room owns its session exclusively. closed is set under mu when the room is torn down,
// so a caller that looked the room up just before teardown cannot seat anyone in it.
type room struct {
	mu        sync.Mutex
	id        string
	session   *tictactoe.Session
	createdAt time.Time
	closed    bool
}

// RoomManager is the registry of live rooms.
// The map is guarded by mu; each room by its own mutex. Locks are taken registry first, then room.
type RoomManager struct {
	logger      *slog.Logger
	players     nameLookup
	defaultSize int

	generateID func() (string, error)
	now        func() time.Time

	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRoomManager(logger *slog.Logger, players nameLookup, defaultSize int) *RoomManager {
	return &RoomManager{
		logger:      logger.With("component", "rooms"),
		players:     players,
		defaultSize: entity.ClampSize(defaultSize),
		generateID:  pkg.GenerateRoomID,
		now:         time.Now,
		rooms:       make(map[string]*room),
	}
}

// CreateRoom registers an empty room. A size of zero picks the configured default.
func (that *RoomManager) CreateRoom(size int) (entity.RoomView, error) {
	log := that.logger.With("method", "CreateRoom")

	if size == 0 {
		size = that.defaultSize
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	id, err := that.freeRoomID()
	if err != nil {
		log.Error("failed to allocate room id", "error", err)
		return entity.RoomView{}, fmt.Errorf("failed to create room: %w", err)
	}

	newRoom := &room{
		id:        id,
		session:   tictactoe.NewSession(size),
		createdAt: that.now(),
	}
	that.rooms[id] = newRoom

	log.Info("room created", "roomID", id, "size", newRoom.session.Size())

	return that.view(newRoom), nil
}

// JoinRoom seats the connection and returns the room together with the connection's mark.
func (that *RoomManager) JoinRoom(roomID, connID string) (entity.RoomView, entity.Symbol, error) {
	if _, ok := that.players.Name(connID); !ok {
		return entity.RoomView{}, entity.EmptyCell, fmt.Errorf("connection %s: %w", connID, apperror.ErrNameMissing)
	}

	var symbol entity.Symbol

	view, err := that.withRoom(roomID, func(r *room) error {
		var err error
		if _, symbol, err = r.session.Join(connID); err != nil {
			return fmt.Errorf("room %s: %w", roomID, err)
		}
		return nil
	})
	if err != nil {
		return entity.RoomView{}, entity.EmptyCell, err
	}

	that.logger.Info("player joined", "roomID", roomID, "connID", connID, "symbol", symbol)

	return view, symbol, nil
}

// LeaveRoom vacates the connection's seat. The last one out tears the room down,
// which is reported by removed.
func (that *RoomManager) LeaveRoom(roomID, connID string) (view entity.RoomView, removed bool, err error) {
	existingRoom, err := that.lookup(roomID)
	if err != nil {
		return entity.RoomView{}, false, err
	}

	existingRoom.mu.Lock()

	if existingRoom.closed {
		existingRoom.mu.Unlock()
		return entity.RoomView{}, false, fmt.Errorf("room %s: %w", roomID, apperror.ErrRoomNotFound)
	}

	if !existingRoom.session.Leave(connID) {
		existingRoom.mu.Unlock()
		return entity.RoomView{}, false, fmt.Errorf("room %s: %w", roomID, apperror.ErrNotSeated)
	}

	view = that.view(existingRoom)
	removed = existingRoom.session.IsEmpty()
	if removed {
		existingRoom.closed = true
	}

	existingRoom.mu.Unlock()

	if removed {
		that.remove(existingRoom)
		that.logger.Info("room torn down", "roomID", roomID)
	}

	that.logger.Info("player left", "roomID", roomID, "connID", connID)

	return view, removed, nil
}

func (that *RoomManager) StartGame(roomID, connID string) (entity.RoomView, error) {
	return that.withRoom(roomID, func(r *room) error {
		return r.session.Start(connID)
	})
}

func (that *RoomManager) MakeMove(roomID, connID string, row, col int) (entity.RoomView, error) {
	return that.withRoom(roomID, func(r *room) error {
		return r.session.Move(connID, row, col)
	})
}

// ResetGame clears the board. A size of zero, or the current size, keeps the size and plays again;
// any other size, or a room that is not full, rebuilds the board through ChangeSize.
func (that *RoomManager) ResetGame(roomID, connID string, size int) (entity.RoomView, error) {
	return that.withRoom(roomID, func(r *room) error {
		session := r.session

		if size == 0 {
			size = session.Size()
		}

		if entity.ClampSize(size) != session.Size() || len(session.Seats()) < 2 {
			return session.ChangeSize(connID, size)
		}

		return session.Reset(connID)
	})
}

// View returns the current snapshot of a room.
func (that *RoomManager) View(roomID string) (entity.RoomView, error) {
	return that.withRoom(roomID, func(*room) error { return nil })
}

// RunReaper tears down rooms nobody has sat in for longer than idleTimeout.
// Occupied rooms are never reaped. It blocks until ctx is done.
func (that *RoomManager) RunReaper(ctx context.Context, idleTimeout time.Duration, onReaped func(ctx context.Context, roomID string)) {
	if idleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range that.reap(idleTimeout) {
				if onReaped != nil {
					onReaped(ctx, id)
				}
			}
		}
	}
}

func (that *RoomManager) reap(idleTimeout time.Duration) []string {
	cutoff := that.now().Add(-idleTimeout)

	var reaped []string

	that.mu.Lock()
	for id, r := range that.rooms {
		r.mu.Lock()
		if r.session.IsEmpty() && r.createdAt.Before(cutoff) {
			r.closed = true
			delete(that.rooms, id)
			reaped = append(reaped, id)
		}
		r.mu.Unlock()
	}
	that.mu.Unlock()

	for _, id := range reaped {
		that.logger.Info("idle room reaped", "roomID", id)
	}

	return reaped
}

// withRoom runs fn under the room's lock and returns the resulting view.
// A rejected fn leaves nothing to report but the error.
func (that *RoomManager) withRoom(roomID string, fn func(r *room) error) (entity.RoomView, error) {
	existingRoom, err := that.lookup(roomID)
	if err != nil {
		return entity.RoomView{}, err
	}

	existingRoom.mu.Lock()
	defer existingRoom.mu.Unlock()

	if existingRoom.closed {
		return entity.RoomView{}, fmt.Errorf("room %s: %w", roomID, apperror.ErrRoomNotFound)
	}

	if err = fn(existingRoom); err != nil {
		return entity.RoomView{}, err
	}

	return that.view(existingRoom), nil
}

func (that *RoomManager) lookup(roomID string) (*room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	existingRoom, ok := that.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, apperror.ErrRoomNotFound)
	}

	return existingRoom, nil
}

func (that *RoomManager) remove(r *room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.rooms[r.id] == r {
		delete(that.rooms, r.id)
	}
}

// freeRoomID must be called with mu held.
func (that *RoomManager) freeRoomID() (string, error) {
	for range maxRoomIDAttempts {
		id, err := that.generateID()
		if err != nil {
			return "", err
		}

		if _, taken := that.rooms[id]; !taken {
			return id, nil
		}
	}

	return "", errRoomIDExhausted
}

// view must be called with the room's lock held.
func (that *RoomManager) view(r *room) entity.RoomView {
	seats := r.session.Seats()

	names := make([]string, 0, len(seats))
	for _, connID := range seats {
		name, _ := that.players.Name(connID)
		names = append(names, name)
	}

	return entity.RoomView{
		ID:      r.id,
		State:   r.session.State(),
		Players: names,
		Members: seats,
	}
}
