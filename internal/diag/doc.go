// Package diag serves a small read-only HTTP endpoint for installers.
//
// Routes:
//
//	GET /healthz          200 while the server socket is up, 503 otherwise
//	GET /status           bridge snapshot and transport statistics
//	GET /events?limit=n   newest journal entries (404 when the journal is off)
//
// The server follows the same lifecycle as the other components:
//
//	srv, err := diag.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package diag
