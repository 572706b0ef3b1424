// Package migrations embeds SQL migration files into the binary, so the
// schema ships inside the executable and no .sql files are needed on disk.
package migrations

import (
	"embed"

	"github.com/domovox/domovox-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
