package bridge

import "encoding/json"

const actionRegister = "register"

// registerMessage is sent once per connect. Field order is the wire order.
type registerMessage struct {
	Action   string `json:"action"`
	DeviceID string `json:"deviceId"`
}

// statusMessage is both the command acknowledgment and the periodic report.
type statusMessage struct {
	DeviceID string `json:"deviceId"`
	Status   string `json:"status"`
}

func encodeRegister(deviceID string) string {
	b, _ := json.Marshal(registerMessage{Action: actionRegister, DeviceID: deviceID}) //nolint:errchkjson // string fields only
	return string(b)
}

func encodeStatus(deviceID, status string) string {
	b, _ := json.Marshal(statusMessage{DeviceID: deviceID, Status: status}) //nolint:errchkjson // string fields only
	return string(b)
}
