package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	upDownSeparator = "-- +migrate Up"
	downMarker      = "-- +migrate Down"
)

// Migration is a single embedded SQL migration with "-- +migrate Up" and
// "-- +migrate Down" sections.
type Migration struct {
	ID  string
	SQL string
}

// RunMigrations executes pending migrations to keep the database updated
// with the latest schema.
func RunMigrations(log *logger.Logger, db *sql.DB, migrationsParam []Migration) error {
	migs := &migrate.MemoryMigrationSource{Migrations: []*migrate.Migration{}}

	for _, m := range migrationsParam {
		splitted := strings.Split(m.SQL, upDownSeparator)
		if len(splitted) < 2 {
			return fmt.Errorf("migration %s missing '-- +migrate Up' separator", m.ID)
		}

		// splitted[0] = Down section (may include the Down marker)
		// splitted[1] = Up section
		downSQL := splitted[0]
		if idx := strings.Index(downSQL, downMarker); idx != -1 {
			downSQL = downSQL[idx+len(downMarker):]
		}

		migs.Migrations = append(migs.Migrations, &migrate.Migration{
			Id:   m.ID,
			Up:   []string{strings.TrimSpace(splitted[1])},
			Down: []string{strings.TrimSpace(downSQL)},
		})
	}

	n, err := migrate.Exec(db, "sqlite3", migs, migrate.Up)
	if err != nil {
		return fmt.Errorf("error executing %d migrations: %w", len(migs.Migrations), err)
	}

	log.Debugf("successfully ran %d of %d migrations", n, len(migs.Migrations))

	return nil
}
