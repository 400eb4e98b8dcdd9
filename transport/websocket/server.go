package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/pkg"
)

type roomService interface {
	CreateRoom(size int) (entity.RoomView, error)
	JoinRoom(roomID, connID string) (entity.RoomView, entity.Symbol, error)
	LeaveRoom(roomID, connID string) (entity.RoomView, bool, error)
	StartGame(roomID, connID string) (entity.RoomView, error)
	MakeMove(roomID, connID string, row, col int) (entity.RoomView, error)
	ResetGame(roomID, connID string, size int) (entity.RoomView, error)
	View(roomID string) (entity.RoomView, error)
}

type playerService interface {
	SetDisplayName(connID, name string) (entity.Player, error)
	Name(connID string) (string, bool)
	Forget(connID string)
}

type snapshotRecorder interface {
	Record(ctx context.Context, room entity.RoomView)
	Forget(ctx context.Context, roomID string)
}

type handler func(ctx context.Context, conn Conn, payload json.RawMessage) error

type Server struct {
	logger    *slog.Logger
	rooms     roomService
	players   playerService
	snapshots snapshotRecorder
	decoder   *payloadDecoder
	upgrader  websocket.Upgrader

	handlers map[string]handler

	connectionsMutex sync.RWMutex
	connections      map[string]Conn
	// memberships maps a connection to the room it is seated in.
	memberships map[string]string

	gatesMutex sync.Mutex
	gates      map[string]*roomGate
}

// roomGate lives only while someone holds or waits for it.
type roomGate struct {
	sync.Mutex
	holders int
}

func New(logger *slog.Logger, rooms roomService, players playerService, snapshots snapshotRecorder, allowedOrigins []string) *Server {
	server := &Server{
		logger:    logger.With("component", "websocket"),
		rooms:     rooms,
		players:   players,
		snapshots: snapshots,
		decoder:   newPayloadDecoder(),

		connections: make(map[string]Conn),
		memberships: make(map[string]string),
		gates:       make(map[string]*roomGate),
	}

	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}

	server.handlers = map[string]handler{
		actionSetUsername: server.handleSetUsername,
		actionCreateRoom:  server.handleCreateRoom,
		actionJoinRoom:    server.handleJoinRoom,
		actionLeaveRoom:   server.handleLeaveRoom,
		actionStartGame:   server.handleStartGame,
		actionMakeMove:    server.handleMakeMove,
		actionResetGame:   server.handleResetGame,
		actionChatMessage: server.handleChatMessage,
	}

	return server
}

// Router returns the websocket endpoint.
func (that *Server) Router(ctx context.Context) *httprouter.Router {
	router := httprouter.New()
	router.GET("/ws", func(writer http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		that.upgradeToWebSocket(ctx, writer, req)
	})

	return router
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until it closes.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	socket, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	conn := newClient(pkg.GenerateConnectionID(), socket, that.logger)
	that.register(conn)

	log.Info("WebSocket connection established", "connID", conn.ID(), "remote", req.RemoteAddr)

	go conn.writePump()
	conn.readPump(func(data []byte) {
		that.handleMessage(ctx, conn, data)
	})

	that.handleDisconnect(ctx, conn)
}

// handleMessage - routes one inbound message to its handler.
func (that *Server) handleMessage(ctx context.Context, conn Conn, data []byte) {
	log := that.logger.With("method", "handleMessage", "connID", conn.ID())

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("failed to unmarshal message", "error", err)
		that.sendFailure(conn, actionError, fmt.Errorf("%w: %w", apperror.ErrBadRequest, err))
		return
	}

	handle, ok := that.handlers[message.Action]
	if !ok {
		log.Warn("unknown action", "action", message.Action)
		that.sendFailure(conn, actionError, fmt.Errorf("%w: unknown action %q", apperror.ErrBadRequest, message.Action))
		return
	}

	if err := handle(ctx, conn, message.Payload); err != nil {
		log.Error("error processing message", "action", message.Action, "error", err)
	}
}

// handleDisconnect - leaves the connection's room and forgets its name.
func (that *Server) handleDisconnect(ctx context.Context, conn Conn) {
	log := that.logger.With("method", "handleDisconnect", "connID", conn.ID())

	if roomID, ok := that.roomOf(conn.ID()); ok {
		if err := that.leave(ctx, conn, roomID); err != nil {
			log.Warn("failed to leave room on disconnect", "roomID", roomID, "error", err)
		}
	}

	that.unregister(conn)
	that.players.Forget(conn.ID())
	conn.Close()

	log.Info("player disconnected")
}

func (that *Server) register(conn Conn) {
	that.connectionsMutex.Lock()
	that.connections[conn.ID()] = conn
	that.connectionsMutex.Unlock()
}

func (that *Server) unregister(conn Conn) {
	that.connectionsMutex.Lock()
	delete(that.connections, conn.ID())
	delete(that.memberships, conn.ID())
	that.connectionsMutex.Unlock()
}

func (that *Server) roomOf(connID string) (string, bool) {
	that.connectionsMutex.RLock()
	defer that.connectionsMutex.RUnlock()

	roomID, ok := that.memberships[connID]
	return roomID, ok
}

func (that *Server) setRoom(connID, roomID string) {
	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	if roomID == "" {
		delete(that.memberships, connID)
		return
	}
	that.memberships[connID] = roomID
}

// lockRoom serializes intents and their broadcasts for one room, so that
// every seat sees snapshots in the order they were produced.
// The returned func releases the gate and drops it once nobody else is queued.
func (that *Server) lockRoom(roomID string) func() {
	that.gatesMutex.Lock()
	gate, ok := that.gates[roomID]
	if !ok {
		gate = &roomGate{}
		that.gates[roomID] = gate
	}
	gate.holders++
	that.gatesMutex.Unlock()

	gate.Lock()

	return func() {
		gate.Unlock()

		that.gatesMutex.Lock()
		gate.holders--
		if gate.holders == 0 {
			delete(that.gates, roomID)
		}
		that.gatesMutex.Unlock()
	}
}

func (that *Server) send(conn Conn, action string, payload any) {
	log := that.logger.With("method", "send", "connID", conn.ID(), "action", action)

	message, err := newMessage(action, payload)
	if err != nil {
		log.Error("failed to build message", "error", err)
		return
	}

	if err = conn.Send(message); err != nil {
		log.Warn("failed to send message", "error", err)
	}
}

// sendFailure reports a rejected request to its sender only.
func (that *Server) sendFailure(conn Conn, action string, err error) {
	that.send(conn, action, newFailure(err))
}

// broadcast sends the same message to every listed connection that is still open.
func (that *Server) broadcast(connIDs []string, action string, payload any) {
	log := that.logger.With("method", "broadcast", "action", action)

	message, err := newMessage(action, payload)
	if err != nil {
		log.Error("failed to build message", "error", err)
		return
	}

	for _, connID := range connIDs {
		that.connectionsMutex.RLock()
		conn, ok := that.connections[connID]
		that.connectionsMutex.RUnlock()

		if !ok {
			log.Warn("connection not found", "connID", connID)
			continue
		}

		if err = conn.Send(message); err != nil {
			log.Warn("failed to send message", "connID", connID, "error", err)
		}
	}
}

// checkOrigin accepts same-host requests, requests without an Origin header
// and any origin listed in allowed. A "*" entry accepts everything.
func checkOrigin(allowed []string) func(req *http.Request) bool {
	return func(req *http.Request) bool {
		origin := req.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}

		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}

		return parsed.Host == req.Host
	}
}
