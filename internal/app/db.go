package app

import (
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mgcaisse/caisse/config"
)

// getDatabase opens the configured backend. The embedded SQLite file is the
// normal offline-first deployment; Postgres is for a register sharing a
// back-office server.
func getDatabase(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			cfg.Host, cfg.User, cfg.Passwd, cfg.Name, cfg.Port)
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
		sqlDB.SetConnMaxLifetime(time.Hour)
		return db, nil
	default:
		name := cfg.Name
		if name == "" {
			name = "caisse.db"
		}
		return gorm.Open(sqlite.Open(filepath.Join(workdir, name)), gormCfg)
	}
}
