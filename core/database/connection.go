package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/namastexlabs/automagik-omni-go/core/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GlobalDB holds the singleton database connection for code that cannot
// take it as an explicit dependency (migration helpers, CLI commands).
var GlobalDB *gorm.DB

// Connect opens a GORM connection against cfg.Database.URL. An empty URL or
// one prefixed with "file:"/"sqlite://" selects the sqlite driver (single
// process, WAL mode); "postgres://"/"postgresql://" selects postgres.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, poolDriver := dialectorFor(cfg.Database.URL)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB handle: %w", err)
	}

	if poolDriver == "sqlite" {
		// A single writer connection avoids SQLITE_BUSY under WAL.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	GlobalDB = db
	return db, nil
}

func dialectorFor(url string) (gorm.Dialector, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), "postgres"
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		return sqlite.Open(fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", path)), "sqlite"
	case strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), "sqlite"
	case url == "":
		return sqlite.Open("file:storages/omni.db?_journal_mode=WAL&_foreign_keys=on"), "sqlite"
	default:
		// Unrecognized scheme: treat as a raw sqlite DSN.
		return sqlite.Open(url), "sqlite"
	}
}
