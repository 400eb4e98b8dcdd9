package usecase

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

type roomRepo interface {
	CreateOrUpdate(ctx context.Context, room *entity.RoomView) error
	DeleteByID(ctx context.Context, id string) error
}

// SnapshotRecorder mirrors room snapshots into storage for the HTTP status endpoint.
// Failures are logged and otherwise ignored; the engine never reads the mirror.
type SnapshotRecorder struct {
	logger   *slog.Logger
	roomRepo roomRepo
}

func NewSnapshotRecorder(logger *slog.Logger, roomRepo roomRepo) *SnapshotRecorder {
	return &SnapshotRecorder{
		logger:   logger.With("component", "snapshots"),
		roomRepo: roomRepo,
	}
}

func (that *SnapshotRecorder) Record(ctx context.Context, room entity.RoomView) {
	if err := that.roomRepo.CreateOrUpdate(ctx, &room); err != nil {
		that.logger.Error("failed to record room snapshot", "method", "Record", "roomID", room.ID, "error", err)
	}
}

func (that *SnapshotRecorder) Forget(ctx context.Context, roomID string) {
	if err := that.roomRepo.DeleteByID(ctx, roomID); err != nil {
		that.logger.Warn("failed to forget room snapshot", "method", "Forget", "roomID", roomID, "error", err)
	}
}
