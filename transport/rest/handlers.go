package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

const qrSize = 320

type roomRepo interface {
	GetByID(ctx context.Context, id string) (*entity.RoomView, error)
}

type Handlers interface {
	PingHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params)
	RoomHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params)
	InviteQRHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params)
}

type handlers struct {
	logger    *slog.Logger
	roomRepo  roomRepo
	publicURL string
}

// NewHandlers serves room status from the snapshot mirror. publicURL is where players open the game.
func NewHandlers(logger *slog.Logger, roomRepo roomRepo, publicURL string) Handlers {
	return &handlers{
		logger:    logger.With("component", "rest"),
		roomRepo:  roomRepo,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// RoomHandler returns the last mirrored snapshot of a room.
func (that *handlers) RoomHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, ok := that.findRoom(w, r, ps.ByName("id"))
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(room); err != nil {
		that.logger.Error("failed to write room", "method", "RoomHandler", "roomID", room.ID, "error", err)
	}
}

// InviteQRHandler renders a PNG QR code of the link that opens the room.
func (that *handlers) InviteQRHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	log := that.logger.With("method", "InviteQRHandler")

	room, ok := that.findRoom(w, r, ps.ByName("id"))
	if !ok {
		return
	}

	png, err := qrcode.Encode(that.inviteLink(room.ID), qrcode.Medium, qrSize)
	if err != nil {
		log.Error("failed to encode qr code", "roomID", room.ID, "error", err)
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err = w.Write(png); err != nil {
		log.Error("failed to write qr code", "roomID", room.ID, "error", err)
	}
}

func (that *handlers) inviteLink(roomID string) string {
	return that.publicURL + "/?room=" + url.QueryEscape(roomID)
}

func (that *handlers) findRoom(w http.ResponseWriter, r *http.Request, roomID string) (*entity.RoomView, bool) {
	room, err := that.roomRepo.GetByID(r.Context(), roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return nil, false
	}

	if err != nil {
		that.logger.Error("failed to get room", "method", "findRoom", "roomID", roomID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}

	return room, true
}
