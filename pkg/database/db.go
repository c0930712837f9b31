package database

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

// Options selects the driver and its connection parameters.
type Options struct {
	Driver string // "postgres" or "sqlite"
	Host   string
	User   string
	Pass   string
	Name   string
	Port   string
	Path   string
	Debug  bool
}

// Connect opens the shared connection once and returns it on every later call.
func Connect(opts Options) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		DB, err = Open(opts)
	})
	if err != nil {
		return nil, err
	}
	if DB == nil {
		return nil, fmt.Errorf("database connection was not initialized")
	}
	return DB, nil
}

// Open creates a new connection without touching the shared one.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			opts.Host, opts.User, opts.Pass, opts.Name, opts.Port,
		)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(opts.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	gormCfg := &gorm.Config{}
	if !opts.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory sqlite database. The pool is capped
// at one connection so every query sees the same database.
func OpenMemory() (*gorm.DB, error) {
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(Options{Driver: "sqlite", Path: path})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the tables of models.
func Migrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
