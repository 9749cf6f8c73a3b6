// Package journal keeps a local SQLite history of what the relay bridge did:
// commands it executed, payloads it ignored, status reports and connection
// changes.
//
// The journal is a debugging aid for installers. It is never read back to
// restore relay state after a restart.
//
// Usage:
//
//	db, _ := database.Open(cfg.Database)
//	_ = db.Migrate(ctx)
//	repo := journal.NewSQLiteRepository(db.DB)
//	_ = repo.Record(ctx, journal.Entry{DeviceID: "chapa_principal", Kind: journal.KindCommand})
package journal
