// Package migrations compiles the SQL migration files into the binary
// so the daemon can run them without the files on disk. Importing the
// package (blank import in main) registers them with the database
// package.
package migrations

import (
	"embed"

	"github.com/emberhaus/ember-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "." // files sit at the embed root
}
