package database

import (
	"context"
	"fmt"
	"time"

	"vuln-tracker/internal/models"

	"github.com/cenkalti/backoff"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// MemoryDSN: отдельная in-memory база SQLite на каждое подключение (для тестов и локального запуска).
	MemoryDSN = "file::memory:?_pragma=foreign_keys(1)"
)

type Options struct {
	Driver  string
	DSN     string
	MaxWait time.Duration // сколько всего ждать базу при старте; 0 означает одну попытку
	Logger  *zap.Logger
}

// Open подключается к базе (с повторами), настраивает пул и применяет миграции.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = opts.MaxWait

	var policy backoff.BackOff = bo
	if opts.MaxWait <= 0 {
		policy = &backoff.StopBackOff{}
	}

	var db *gorm.DB
	attempt := 0
	err = backoff.RetryNotify(func() error {
		attempt++
		log.Info("connecting to database", zap.String("driver", opts.Driver), zap.Int("attempt", attempt))

		conn, err := gorm.Open(dialector, &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if opts.Driver == DriverSQLite {
			// SQLite не любит параллельных писателей; in-memory база живёт, пока жив единственный коннект
			sqlDB.SetMaxOpenConns(1)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		log.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db after %d attempts: %w", attempt, err)
	}
	log.Info("connected to database")

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Vulnerability{},
		&models.Incident{},
		&models.IncidentCounter{},
	)
}

// Ping: проверка для /health.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}
	switch driver {
	case DriverPostgres, "":
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
