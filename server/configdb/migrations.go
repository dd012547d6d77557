package configdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE subject(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			location TEXT NOT NULL,
			chat_id TEXT
		);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		ALTER TABLE subject ADD COLUMN bot_token TEXT;
		ALTER TABLE subject ADD COLUMN created_at INT;
	`))

	// Chat IDs were pasted in by hand, and some have stray whitespace, which Telegram rejects.
	migs = append(migs, dbh.MakeMigrationFromFunc(log, &idx, func(tx migration.LimitedTx) error {
		_, err := tx.Exec("UPDATE subject SET chat_id = TRIM(chat_id) WHERE chat_id IS NOT NULL")
		return err
	}))

	return migs
}
