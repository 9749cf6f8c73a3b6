// Package influxdb provides InfluxDB connectivity for the chapa agent.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, relay telemetry and health monitoring.
//
// # Measurements
//
//	relay_state        device_id | open, level, status
//	relay_command      device_id, command | count
//	server_connection  device_id | connected
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteRelayState("chapa_principal", true, "abierta")
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Batch errors are delivered through SetOnError.
package influxdb
