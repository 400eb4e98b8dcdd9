package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

// client -> server
const (
	actionSetUsername = "setUsername"
	actionCreateRoom  = "createRoom"
	actionJoinRoom    = "joinTicTacToeRoom"
	actionLeaveRoom   = "leaveRoom"
	actionStartGame   = "startGame"
	actionMakeMove    = "makeMove"
	actionResetGame   = "resetGame"
	actionChatMessage = "chatMessage"
)

// server -> client
const (
	actionUsernameSet      = "usernameSet"
	actionUsernameSetError = "usernameSetError"
	actionRoomCreated      = "roomCreated"
	actionRoomCreatedError = "roomCreatedError"
	actionRoomJoined       = "ticTacToeRoomJoined"
	actionJoinFailed       = "joinFailed"
	actionGameReady        = "gameReady"
	actionGameStarted      = "gameStarted"
	actionMoveMade         = "moveMade"
	actionGameReset        = "gameReset"
	actionInvalidMove      = "invalidMove"
	actionRoomLeft         = "roomLeft"
	actionPlayerLeft       = "playerLeft"
	actionMessage          = "message"
	actionError            = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type setUsernameRequest struct {
	Name string `json:"name" validate:"required,max=32"`
}

type createRoomRequest struct {
	GameType string `json:"gameType" validate:"omitempty,oneof=ticTacToe"`
	GameSize int    `json:"gameSize"`
}

type joinRoomRequest struct {
	RoomID   string `json:"roomId"   validate:"required,numeric,len=8"`
	GameSize int    `json:"gameSize"`
}

type roomRequest struct {
	RoomID   string `json:"roomId"   validate:"required"`
	GameSize int    `json:"gameSize"`
}

type makeMoveRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Row    *int   `json:"row"    validate:"required"`
	Col    *int   `json:"col"    validate:"required"`
}

type chatMessageRequest struct {
	RoomID  string `json:"roomId"  validate:"required"`
	Message string `json:"message" validate:"required,max=500"`
}

type usernameSetResponse struct {
	Name string `json:"name"`
}

type roomCreatedResponse struct {
	RoomID string `json:"roomId"`
}

type roomJoinedResponse struct {
	RoomID       string           `json:"roomId"`
	GameState    entity.GameState `json:"gameState"`
	Players      []string         `json:"players"`
	PlayerSymbol entity.Symbol    `json:"playerSymbol"`
}

type gameReadyResponse struct {
	GameState entity.GameState `json:"gameState"`
	Players   []string         `json:"players"`
}

type gameStateResponse struct {
	GameState entity.GameState `json:"gameState"`
}

type roomLeftResponse struct {
	RoomID string `json:"roomId"`
}

type chatResponse struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// newFailure renders a rejection as the bare reason string clients show to the user,
// prefixed with its kind, e.g. "InvalidMove: invalid move: it's not your turn".
func newFailure(err error) string {
	return fmt.Sprintf("%s: %s", apperror.KindOf(err), err)
}

// payloadDecoder turns a raw payload into a typed, validated request.
type payloadDecoder struct {
	validate *validator.Validate
}

func newPayloadDecoder() *payloadDecoder {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		return name
	})

	return &payloadDecoder{validate: validate}
}

// parse reads a payload keeping numbers as json.Number. An empty payload is nil.
func (that *payloadDecoder) parse(payload json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrBadRequest, err)
	}

	return raw, nil
}

// bind decodes raw into target and validates it. Unknown fields are rejected.
func (that *payloadDecoder) bind(raw any, target any) error {
	if raw == nil {
		raw = map[string]any{}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      target,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}

	if err = decoder.Decode(raw); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrBadRequest, err)
	}

	if err = that.validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %s", apperror.ErrBadRequest, describeValidation(err))
	}

	return nil
}

func (that *payloadDecoder) decode(payload json.RawMessage, target any) error {
	raw, err := that.parse(payload)
	if err != nil {
		return err
	}

	return that.bind(raw, target)
}

func describeValidation(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	reasons := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		reasons = append(reasons, fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag()))
	}

	return strings.Join(reasons, "; ")
}

func newMessage(action string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", action, err)
	}

	return &Message{Action: action, Payload: data}, nil
}
