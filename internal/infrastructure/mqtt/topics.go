package mqtt

import "fmt"

// Topic prefixes for the chapa MQTT namespace.
//
// All device topics use the flat scheme: chapa/{category}/{deviceId}
const (
	// TopicPrefix is the base for all agent topics.
	TopicPrefix = "chapa"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "chapa/system"
)

// Topics provides builders for chapa MQTT topics.
// Using these helpers keeps topic naming consistent between the agent
// and anything listening on the broker.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("chapa_principal")
//	// Returns: "chapa/state/chapa_principal"
type Topics struct{}

// State returns the retained topic carrying acknowledgments and periodic status.
//
// Example: chapa/state/chapa_principal
func (Topics) State(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// Event returns the topic carrying lifecycle events such as registration.
//
// Example: chapa/event/chapa_principal
func (Topics) Event(deviceID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, deviceID)
}

// Command returns the topic the agent listens on for relay commands.
// Payloads use the same format as WebSocket commands.
//
// Example: chapa/command/chapa_principal
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the LWT and online/offline topic for an agent.
//
// Example: chapa/system/chapa_principal/status
func (Topics) SystemStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixSystem, deviceID)
}
