package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lshigami/gradebridge/config"
	"github.com/lshigami/gradebridge/internal/model"
	"github.com/lshigami/gradebridge/internal/repository"
)

const DriverBadger = "badger"

// DriverFactory creates a gorm.Dialector from a DSN.
type DriverFactory func(dsn string) gorm.Dialector

var driverFactories = map[string]DriverFactory{
	"sqlite":   sqlite.Open,
	"postgres": postgres.Open,
}

// GetDialector returns the dialector registered for driver.
func GetDialector(driver, dsn string) (gorm.Dialector, error) {
	factory, exists := driverFactories[driver]
	if !exists {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	return factory(dsn), nil
}

// DSN builds the connection string. An explicit DATABASE_DSN always wins.
func DSN(cfg config.Database) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	if cfg.Driver == "sqlite" {
		return cfg.Path
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)
}

// NewDatabase opens the SQL document store and migrates its single table.
func NewDatabase(cfg config.Database) (*gorm.DB, error) {
	dialector, err := GetDialector(cfg.Driver, DSN(cfg))
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := AutoMigrateDB(db); err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Driver).Msg("Database connection established")
	return db, nil
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	if err := db.AutoMigrate(&model.Document{}); err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}

// OpenBadger opens the embedded store at path.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Badger document store opened")
	return db, nil
}

// OpenDocumentRepository opens the store selected by DATABASE_DRIVER.
func OpenDocumentRepository(cfg config.Database) (repository.DocumentRepository, error) {
	if cfg.Driver == DriverBadger {
		db, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		return repository.NewBadgerDocumentRepository(db), nil
	}

	db, err := NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return repository.NewGormDocumentRepository(db), nil
}

// NewDocumentRepository is the fx provider; the store is closed on shutdown.
func NewDocumentRepository(lc fx.Lifecycle, cfg *config.Config) (repository.DocumentRepository, error) {
	repo, err := OpenDocumentRepository(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing document store...")
			return repo.Close()
		},
	})
	return repo, nil
}
