package bridge

// Event is something the transport reports to the session. It is one of
// Disconnected, Connected or TextPayload.
type Event interface {
	isEvent()
}

// Disconnected reports that the server connection dropped.
type Disconnected struct {
	Err error
}

// Connected reports a successful connect or reconnect.
type Connected struct {
	URL string
}

// TextPayload carries one inbound text message.
type TextPayload struct {
	Data string

	// Source names where the payload came from ("ws", "mqtt"). Informational.
	Source string
}

func (Disconnected) isEvent() {}
func (Connected) isEvent()    {}
func (TextPayload) isEvent()  {}
