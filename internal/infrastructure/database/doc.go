// Package database provides SQLite connectivity for the agent's local journal.
//
// This package manages:
//   - Database connection with WAL mode
//   - Schema migrations embedded in the binary
//   - Connection lifecycle and health checks
//
// The database lives on the board's SD card, so the pool is pinned to a
// single connection and WAL mode keeps write amplification low.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql and are
// registered by the migrations package. Migrations only run forward.
package database
