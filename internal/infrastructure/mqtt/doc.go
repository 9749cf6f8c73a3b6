// Package mqtt provides MQTT client connectivity for the chapa agent.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Mirroring of acknowledgments and status onto retained state topics
//   - A command topic that feeds the same handler as the WebSocket server
//   - Last Will and Testament (LWT) for offline detection
//
// The broker is optional. The WebSocket connection to the rentals server
// is the primary control channel; MQTT lets building automation and
// dashboards observe and drive the relay without going through it.
//
//	Rentals server ↔ WebSocket ↔ chapa agent ↔ MQTT broker ↔ local consumers
//
// # Topics
//
//	chapa/state/{deviceId}          retained acks and periodic status
//	chapa/event/{deviceId}          registration and lifecycle events
//	chapa/command/{deviceId}        inbound relay commands
//	chapa/system/{deviceId}/status  online/offline (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeCommands(cfg.Device.ID, func(payload []byte) {
//	    events <- bridge.TextPayload{Data: string(payload)}
//	})
package mqtt
