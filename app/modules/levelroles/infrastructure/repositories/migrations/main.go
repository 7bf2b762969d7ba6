package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the level roles module schema history.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
