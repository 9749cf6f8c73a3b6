// Package wsclient maintains the agent's WebSocket connection to the
// rentals server.
//
// The client dials the configured URL and reports every connect, text
// frame and disconnect through callbacks, in the order they happen on the
// wire. When the connection drops it waits a fixed interval and dials
// again until Close is called. Binary frames are dropped.
//
// Writes never block on a dead connection: SendText returns
// ErrNotConnected immediately when there is no socket.
//
// Keepalive uses WebSocket pings. The read deadline is pushed out on
// every pong, so a silent server is detected within PingInterval plus
// PongTimeout.
package wsclient
