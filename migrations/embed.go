// Package migrations embeds the journal schema into the agent binary.
//
// Importing this package for its side effect registers the files with the
// database package, so the board needs no SQL on its filesystem.
package migrations

import (
	"embed"

	"github.com/FernandoPintoL/socket-rentals/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
