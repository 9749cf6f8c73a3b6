package wsclient

import "errors"

// Domain errors for the WebSocket client.
var (
	// ErrNotConnected is returned by SendText when no connection is open.
	ErrNotConnected = errors.New("wsclient: not connected")

	// ErrSendFailed is returned when a write to an open connection fails.
	ErrSendFailed = errors.New("wsclient: send failed")

	// ErrClosed is returned when Start is called after Close.
	ErrClosed = errors.New("wsclient: client closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("wsclient: already started")
)
