package game

//go:generate mockgen -source=conn.go -destination=mock_conn.go -package=game

// Conn is the engine's view of one connected client. Send must not
// block: transports are expected to buffer writes and report an error
// when the buffer is full or the connection is gone. A Send error is
// treated as an implicit disconnect of that client and never prevents
// delivery to the rest of the room.
type Conn interface {
	Send(data []byte) error
}
