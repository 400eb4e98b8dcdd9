package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rocketscienceinc/gridtactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/gridtactoe-backend/internal/entity"
)

// PlayerRegistry keeps the display name each connection declared.
// Names are not unique across connections.
type PlayerRegistry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	players map[string]entity.Player
}

func NewPlayerRegistry(logger *slog.Logger) *PlayerRegistry {
	return &PlayerRegistry{
		logger:  logger.With("component", "players"),
		players: make(map[string]entity.Player),
	}
}

// SetDisplayName stores or overwrites the trimmed name of a connection.
func (that *PlayerRegistry) SetDisplayName(connID, name string) (entity.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Player{}, fmt.Errorf("connection %s: %w", connID, apperror.ErrBlankName)
	}

	player := entity.Player{ID: connID, Name: name}

	that.mu.Lock()
	that.players[connID] = player
	that.mu.Unlock()

	that.logger.Debug("display name set", "connID", connID, "name", name)

	return player, nil
}

func (that *PlayerRegistry) Name(connID string) (string, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	player, ok := that.players[connID]
	return player.Name, ok
}

// Forget drops the connection's entry once it disconnects.
func (that *PlayerRegistry) Forget(connID string) {
	that.mu.Lock()
	delete(that.players, connID)
	that.mu.Unlock()
}
