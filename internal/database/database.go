package database

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
	log *slog.Logger
}

// Options tune the connection pool. Zero values fall back to defaults.
type Options struct {
	Verbose               bool
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	Logger                *slog.Logger
}

// Initialize creates a new database connection at dbPath
func Initialize(dbPath string, verbose bool) (*DB, error) {
	return Open(dbPath, Options{Verbose: verbose})
}

// Open creates a new database connection with the provided options
func Open(dbPath string, opts Options) (*DB, error) {
	// Ensure the database directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 10
	}
	if opts.MaxIdleConnections <= 0 {
		opts.MaxIdleConnections = 5
	}
	if opts.ConnectionMaxLifetime <= 0 {
		opts.ConnectionMaxLifetime = time.Hour
	}

	logLevel := logger.Error
	if opts.Verbose {
		logLevel = logger.Info
	}

	// gorm writes through the slog handler so SQL traces share the app format
	gormLogger := logger.New(
		log.New(slogWriter{opts.Logger}, "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	sqlDB.SetMaxIdleConns(opts.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(opts.MaxConnections)
	sqlDB.SetConnMaxLifetime(opts.ConnectionMaxLifetime)

	return &DB{DB: db, log: opts.Logger}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is working
func (db *DB) HealthCheck() error {
	if db == nil || db.DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// AutoMigrate runs GORM auto migration for the provided models
func (db *DB) AutoMigrate(models ...any) error {
	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	db.logger().Info("database migrated", "models", len(models))
	return nil
}

func (db *DB) logger() *slog.Logger {
	if db.log == nil {
		return slog.Default()
	}
	return db.log
}

type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.log.Info(string(trimNewline(p)), "component", "gorm")
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}
	return p
}
