/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
)

// MigrationTable records the applied migrations.
const MigrationTable = "withdrawer_migrations"

//go:embed sql/*/*.sql
var SQLFiles embed.FS

// MigrationSource returns the embedded migrations written for driver.
func MigrationSource(driver string) (migrate.EmbedFileSystemMigrationSource, error) {
	switch driver {
	case "sqlite3", "postgres":
		return migrate.EmbedFileSystemMigrationSource{
			FileSystem: SQLFiles,
			Root:       "sql/" + driver,
		}, nil
	default:
		return migrate.EmbedFileSystemMigrationSource{}, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Migrate applies every pending migration and returns how many ran.
func Migrate(db *sql.DB, driver string) (int, error) {
	migrations, err := MigrationSource(driver)
	if err != nil {
		return 0, err
	}

	migrate.SetTable(MigrationTable)
	n, err := migrate.Exec(db, driver, migrations, migrate.Up)
	if err != nil {
		log.Printf("Error migrating up: %v", err)
		return n, err
	}
	return n, nil
}

// Rollback reverts up to max applied migrations, newest first. A max of
// zero reverts all of them.
func Rollback(db *sql.DB, driver string, max int) (int, error) {
	migrations, err := MigrationSource(driver)
	if err != nil {
		return 0, err
	}

	migrate.SetTable(MigrationTable)
	n, err := migrate.ExecMax(db, driver, migrations, migrate.Down, max)
	if err != nil {
		log.Printf("Error migrating down: %v", err)
		return n, err
	}
	return n, nil
}
