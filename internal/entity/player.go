package entity

// Player is a connection that declared a display name.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
