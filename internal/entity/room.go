package entity

// RoomView is what a room looks like after an operation: the state to broadcast,
// the roster in seat order and the connections to broadcast it to.
type RoomView struct {
	ID      string    `json:"id"`
	State   GameState `json:"gameState"`
	Players []string  `json:"players"`
	Members []string  `json:"-"`
}
