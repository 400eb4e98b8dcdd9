package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

// Handlers answer rejected requests themselves and return nil;
// a returned error means the gateway itself failed.

func (that *Server) handleSetUsername(_ context.Context, conn Conn, payload json.RawMessage) error {
	log := that.logger.With("method", "handleSetUsername", "connID", conn.ID())

	raw, err := that.decoder.parse(payload)
	if err != nil {
		that.sendFailure(conn, actionUsernameSetError, err)
		return nil
	}

	// the name may come bare or wrapped as {name}
	if name, ok := raw.(string); ok {
		raw = map[string]any{"name": name}
	}

	var req setUsernameRequest
	if err = that.decoder.bind(raw, &req); err != nil {
		log.Info("rejected username payload", "reason", err)
		that.sendFailure(conn, actionUsernameSetError, err)
		return nil
	}

	player, err := that.players.SetDisplayName(conn.ID(), req.Name)
	if err != nil {
		log.Info("rejected username", "reason", err)
		that.sendFailure(conn, actionUsernameSetError, err)
		return nil
	}

	that.send(conn, actionUsernameSet, usernameSetResponse{Name: player.Name})

	return nil
}

func (that *Server) handleCreateRoom(ctx context.Context, conn Conn, payload json.RawMessage) error {
	log := that.logger.With("method", "handleCreateRoom", "connID", conn.ID())

	var req createRoomRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionRoomCreatedError, err)
		return nil
	}

	view, err := that.rooms.CreateRoom(req.GameSize)
	if err != nil {
		that.sendFailure(conn, actionRoomCreatedError, err)
		return fmt.Errorf("failed to create room: %w", err)
	}

	that.snapshots.Record(ctx, view)
	that.send(conn, actionRoomCreated, roomCreatedResponse{RoomID: view.ID})

	log.Info("room created", "roomID", view.ID)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, conn Conn, payload json.RawMessage) error {
	log := that.logger.With("method", "handleJoinRoom", "connID", conn.ID())

	var req joinRoomRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionJoinFailed, err)
		return nil
	}

	previous, inRoom := that.roomOf(conn.ID())
	rejoin := inRoom && previous == req.RoomID

	// a failed join leaves the current seat untouched
	view, symbol, err := that.join(ctx, conn, req.RoomID, rejoin)
	if err != nil {
		log.Info("join rejected", "roomID", req.RoomID, "reason", err)
		that.sendFailure(conn, actionJoinFailed, err)
		return nil
	}

	if inRoom && !rejoin {
		if err = that.leave(ctx, conn, previous); err != nil {
			log.Warn("failed to leave previous room", "roomID", previous, "error", err)
		}
	}

	log.Info("player joined room", "roomID", view.ID, "symbol", symbol)

	return nil
}

// join seats the connection and announces it under the room gate.
func (that *Server) join(ctx context.Context, conn Conn, roomID string, rejoin bool) (entity.RoomView, entity.Symbol, error) {
	unlock := that.lockRoom(roomID)
	defer unlock()

	view, symbol, err := that.rooms.JoinRoom(roomID, conn.ID())
	if err != nil {
		return entity.RoomView{}, entity.EmptyCell, err
	}

	that.setRoom(conn.ID(), view.ID)

	that.send(conn, actionRoomJoined, roomJoinedResponse{
		RoomID:       view.ID,
		GameState:    view.State,
		Players:      view.Players,
		PlayerSymbol: symbol,
	})

	if !rejoin && len(view.Members) == 2 {
		that.broadcast(view.Members, actionGameReady, gameReadyResponse{
			GameState: view.State,
			Players:   view.Players,
		})
	}

	that.snapshots.Record(ctx, view)

	return view, symbol, nil
}

func (that *Server) handleLeaveRoom(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var req roomRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionError, err)
		return nil
	}

	if err := that.leave(ctx, conn, req.RoomID); err != nil {
		that.sendFailure(conn, actionError, err)
		return nil
	}

	that.send(conn, actionRoomLeft, roomLeftResponse{RoomID: req.RoomID})

	return nil
}

func (that *Server) handleStartGame(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var req roomRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionInvalidMove, err)
		return nil
	}

	that.applyToRoom(ctx, conn, req.RoomID, actionGameStarted, func() (entity.RoomView, error) {
		return that.rooms.StartGame(req.RoomID, conn.ID())
	})

	return nil
}

func (that *Server) handleMakeMove(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var req makeMoveRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionInvalidMove, err)
		return nil
	}

	that.applyToRoom(ctx, conn, req.RoomID, actionMoveMade, func() (entity.RoomView, error) {
		return that.rooms.MakeMove(req.RoomID, conn.ID(), *req.Row, *req.Col)
	})

	return nil
}

func (that *Server) handleResetGame(ctx context.Context, conn Conn, payload json.RawMessage) error {
	var req roomRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionInvalidMove, err)
		return nil
	}

	that.applyToRoom(ctx, conn, req.RoomID, actionGameReset, func() (entity.RoomView, error) {
		return that.rooms.ResetGame(req.RoomID, conn.ID(), req.GameSize)
	})

	return nil
}

// handleChatMessage relays text to the sender's room. Nothing is stored.
func (that *Server) handleChatMessage(_ context.Context, conn Conn, payload json.RawMessage) error {
	var req chatMessageRequest
	if err := that.decoder.decode(payload, &req); err != nil {
		that.sendFailure(conn, actionError, err)
		return nil
	}

	if roomID, ok := that.roomOf(conn.ID()); !ok || roomID != req.RoomID {
		that.sendFailure(conn, actionError, fmt.Errorf("room %s: %w", req.RoomID, apperror.ErrNotSeated))
		return nil
	}

	unlock := that.lockRoom(req.RoomID)
	defer unlock()

	view, err := that.rooms.View(req.RoomID)
	if err != nil {
		that.sendFailure(conn, actionError, err)
		return nil
	}

	name, _ := that.players.Name(conn.ID())
	that.broadcast(view.Members, actionMessage, chatResponse{Username: name, Text: req.Message})

	return nil
}

// applyToRoom runs one game intent under the room gate. On success the new state is
// broadcast to the room as action; a rejection goes back to the sender as invalidMove.
func (that *Server) applyToRoom(ctx context.Context, conn Conn, roomID, action string, intent func() (entity.RoomView, error)) {
	log := that.logger.With("method", "applyToRoom", "connID", conn.ID(), "roomID", roomID, "action", action)

	unlock := that.lockRoom(roomID)
	defer unlock()

	view, err := intent()
	if err != nil {
		log.Info("intent rejected", "kind", apperror.KindOf(err), "reason", err)
		that.sendFailure(conn, actionInvalidMove, err)
		return
	}

	that.broadcast(view.Members, action, gameStateResponse{GameState: view.State})
	that.snapshots.Record(ctx, view)
}

// leave vacates the connection's seat and tells the other seat, if any.
func (that *Server) leave(ctx context.Context, conn Conn, roomID string) error {
	unlock := that.lockRoom(roomID)
	defer unlock()

	if current, ok := that.roomOf(conn.ID()); ok && current == roomID {
		that.setRoom(conn.ID(), "")
	}

	view, removed, err := that.rooms.LeaveRoom(roomID, conn.ID())
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	if removed {
		that.snapshots.Forget(ctx, roomID)
		return nil
	}

	that.broadcast(view.Members, actionPlayerLeft, gameReadyResponse{
		GameState: view.State,
		Players:   view.Players,
	})
	that.snapshots.Record(ctx, view)

	return nil
}
