package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dsyorkd/emr-controller/internal/errors"
	applogger "github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
)

// Database wraps GORM database connection with additional functionality
type Database struct {
	db     *gorm.DB
	logger applogger.Interface
}

// Config holds database configuration
type Config struct {
	Path            string `yaml:"path"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	LogLevel        string `yaml:"log_level"`
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Path:            "data/emr-controller.db",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: "5m",
		LogLevel:        "warn",
	}
}

// New creates a new database connection and runs schema migration
func New(config *Config, logger applogger.Interface) (*Database, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := ensureDirExists(filepath.Dir(config.Path)); err != nil {
		return nil, errors.Wrapf(err, "failed to create database directory")
	}

	db, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{
		Logger: newGormAdapter(logger.WithField("component", "database"), config.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get underlying sql.DB")
	}

	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)

	if config.ConnMaxLifetime != "" {
		duration, err := time.ParseDuration(config.ConnMaxLifetime)
		if err != nil {
			logger.Warnf("Invalid conn_max_lifetime '%s', using default 5m", config.ConnMaxLifetime)
			duration = 5 * time.Minute
		}
		sqlDB.SetConnMaxLifetime(duration)
	}

	database := &Database{
		db:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate database")
	}

	logger.WithField("path", config.Path).Info("Database connection established")
	return database, nil
}

// DB returns the underlying GORM database instance
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func (d *Database) Health() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errors.NewDatabaseError("health", err)
	}
	return sqlDB.Ping()
}

// migrate runs database migrations
func (d *Database) migrate() error {
	return d.db.AutoMigrate(
		&models.Cluster{},
		&models.EMRRelease{},
		&models.Metric{},
	)
}

func ensureDirExists(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// gormAdapter routes gorm log output through the application logger.
type gormAdapter struct {
	logger applogger.Interface
	level  gormlogger.LogLevel
}

func newGormAdapter(logger applogger.Interface, level string) gormlogger.Interface {
	var gl gormlogger.LogLevel
	switch level {
	case "error":
		gl = gormlogger.Error
	case "warn", "":
		gl = gormlogger.Warn
	case "info":
		gl = gormlogger.Info
	default:
		gl = gormlogger.Warn
	}
	return &gormAdapter{logger: logger, level: gl}
}

func (a *gormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormAdapter{logger: a.logger, level: level}
}

func (a *gormAdapter) Info(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Info {
		a.logger.Infof(msg, args...)
	}
}

func (a *gormAdapter) Warn(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Warn {
		a.logger.Warnf(msg, args...)
	}
}

func (a *gormAdapter) Error(_ context.Context, msg string, args ...interface{}) {
	if a.level >= gormlogger.Error {
		a.logger.Errorf(msg, args...)
	}
}

func (a *gormAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if a.level < gormlogger.Info && err == nil {
		return
	}
	sql, rows := fc()
	fields := map[string]interface{}{
		"elapsed": time.Since(begin).String(),
		"rows":    rows,
		"sql":     sql,
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		a.logger.WithFields(fields).WithError(err).Error("query failed")
		return
	}
	if a.level >= gormlogger.Info {
		a.logger.WithFields(fields).Debug("query")
	}
}
