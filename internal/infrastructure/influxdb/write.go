package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the agent.
const (
	measurementRelay      = "relay_state"
	measurementCommand    = "relay_command"
	measurementConnection = "server_connection"
)

// WriteRelayState records the relay's logical state after a change or a
// periodic report. The write is non-blocking; points are batched.
//
// Parameters:
//   - deviceID: Agent identifier (e.g., "chapa_principal")
//   - open: true when the relay is at its active level
//   - status: The status word sent to the server (e.g., "abierta")
//
// Example:
//
//	client.WriteRelayState("chapa_principal", true, "abierta")
func (c *Client) WriteRelayState(deviceID string, open bool, status string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(relayStatePoint(deviceID, open, status, time.Now()))
}

// WriteCommand records an accepted relay command.
func (c *Client) WriteCommand(deviceID, command string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandPoint(deviceID, command, time.Now()))
}

// WriteConnection records a change of the WebSocket connection state.
func (c *Client) WriteConnection(deviceID string, connected bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(connectionPoint(deviceID, connected, time.Now()))
}

func relayStatePoint(deviceID string, open bool, status string, ts time.Time) *write.Point {
	level := 0
	if open {
		level = 1
	}
	return write.NewPoint(
		measurementRelay,
		map[string]string{"device_id": deviceID},
		map[string]any{
			"open":   open,
			"level":  level,
			"status": status,
		},
		ts,
	)
}

func commandPoint(deviceID, command string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementCommand,
		map[string]string{
			"device_id": deviceID,
			"command":   command,
		},
		map[string]any{"count": 1},
		ts,
	)
}

func connectionPoint(deviceID string, connected bool, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementConnection,
		map[string]string{"device_id": deviceID},
		map[string]any{"connected": connected},
		ts,
	)
}
