// Package db wires the GORM/Postgres connection used by the queue and
// control gateways.
package db

import (
	"fmt"
	stdlog "log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/antismash/asdb-jobs/internal/config"
	"github.com/antismash/asdb-jobs/internal/domain"
	"github.com/antismash/asdb-jobs/internal/platform/logger"
)

func Open(p config.ConnParams, log *logger.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database,
	)

	// The dispatcher pool polls constantly; "record not found" on an
	// empty queue is the normal case, not something worth logging.
	gormLog := gormLogger.New(
		stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	log.Info("connecting to postgres", "host", p.Host, "database", p.Database)
	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := database.Exec(`CREATE SCHEMA IF NOT EXISTS asdb_jobs`).Error; err != nil {
		return nil, fmt.Errorf("create asdb_jobs schema: %w", err)
	}

	return database, nil
}

// AutoMigrate creates/updates the jobs and controls tables.
func AutoMigrate(database *gorm.DB) error {
	return database.AutoMigrate(&domain.Job{}, &domain.Control{})
}
