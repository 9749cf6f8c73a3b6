// Package provision registers the device with the rentals server over HTTP
// before the WebSocket session starts.
//
// The server upserts devices by id: 201 means the record was created, 200
// that an existing record was updated. A 400 means the server does not
// accept this device type, which no retry will fix.
package provision
