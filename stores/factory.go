package stores

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMStore implements Store for SQLite and PostgreSQL via GORM
type GORMStore struct {
	db *gorm.DB
}

var _ Store = (*GORMStore)(nil)

// NewStore opens the database named by config and migrates the schema.
func NewStore(config *StoreConfig) (*GORMStore, error) {
	var dialector gorm.Dialector
	switch config.Type {
	case "sqlite":
		dialector = sqlite.Open(config.Connection)
	case "postgres":
		dialector = postgres.Open(config.Connection)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}

	gormConfig := &gorm.Config{}
	if config.Options["log_level"] == "silent" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Type, err)
	}

	if config.Type == "sqlite" {
		// SQLite serializes writers; one connection also keeps ":memory:" databases shared.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return NewGORMStore(db)
}

// NewGORMStore wraps an existing GORM connection.
func NewGORMStore(db *gorm.DB) (*GORMStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if err := db.AutoMigrate(&Fact{}, &Document{}, &QueryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return &GORMStore{db: db}, nil
}

// NewSQLiteStoreDefault creates a SQLite store with default settings
func NewSQLiteStoreDefault() (*GORMStore, error) {
	return NewStore(NewStoreConfig("sqlite", "jarvis.sqlite"))
}

// NewPostgresStoreDefault creates a PostgreSQL store from connection parameters
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (*GORMStore, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewStore(NewStoreConfig("postgres", dsn))
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *GORMStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
