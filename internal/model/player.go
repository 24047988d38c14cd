package model

import "github.com/google/uuid"

// Player identifies a participant in a game session. The ID is issued
// once when the player first joins and is presented again on reconnect
// to reclaim votes and admin status.
type Player struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
