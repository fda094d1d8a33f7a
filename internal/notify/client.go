package notify

// Client is a single connection of a user that can receive events.
type Client interface {
	// GetID identifies the connection; one user may hold several.
	GetID() string
	GetUserID() uint
	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- Event
	// Run starts the client's pumps.
	Run()
	// Close is called by the hub exactly once, when it forgets the client.
	Close()
}
