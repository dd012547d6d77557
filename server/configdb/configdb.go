package configdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// ConfigDB holds the people we are watching over, and where to reach them
type ConfigDB struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open or create a sqlite config database
func NewConfigDB(logger logs.Log, dbFilename string) (*ConfigDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	return NewConfigDBFromConfig(logger, dbh.MakeSqliteConfig(dbFilename))
}

// Open or create a config database on any driver that dbh supports (eg postgres)
func NewConfigDBFromConfig(logger logs.Log, config dbh.DBConfig) (*ConfigDB, error) {
	logger.Infof("Opening config DB %v", config.Database)
	db, err := dbh.OpenDB(logger, config, Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", config.Database, err)
	}
	return &ConfigDB{
		Log: logger,
		DB:  db,
	}, nil
}
