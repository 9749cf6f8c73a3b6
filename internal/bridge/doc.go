// Package bridge turns server messages into relay actions.
//
// A Session owns everything the agent knows about its single device: the
// device id, the relay, the outbound sender and the status timer. It is
// driven by one goroutine (Run) that consumes Events in delivery order:
//
//	Connected     -> send {"action":"register","deviceId":"<id>"}
//	TextPayload   -> parse; on abrir/cerrar drive the relay, then acknowledge
//	Disconnected  -> log only
//
// Between events the loop polls the status timer and sends
// {"deviceId":"<id>","status":"cerrada"} once per interval.
//
// Journal, Mirror and Metrics are optional sinks. They are called after the
// socket send and their failures never change what the session does.
//
// Thread Safety: HandleEvent and Tick must only be called from the loop
// goroutine. Snapshot is safe to call from any goroutine.
package bridge
