package checkpoint

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/ChainSyncer/internal/db"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
)

//go:embed migrations/001_checkpoint.sql
var mig001 string

// RunMigrations applies the checkpoint store schema.
func RunMigrations(log *logger.Logger, database *sql.DB) error {
	migrations := []db.Migration{
		{
			ID:  "001_checkpoint.sql",
			SQL: mig001,
		},
	}

	return db.RunMigrations(log, database, migrations)
}
