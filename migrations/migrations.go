package migrations

import (
	"embed"
)

// The local state schema ships inside the binary as goose-format SQL
// and is applied by the sqlite store on boot.

//go:embed *.sql
var localState embed.FS

func GetMigrations() embed.FS {
	return localState
}
