// Package storage is the optional alert ledger used for auditing and cooldown.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liamashdown/edgescan/internal/alerts"
	"github.com/liamashdown/edgescan/internal/config"
	"github.com/liamashdown/edgescan/internal/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM database connection
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

var _ alerts.Ledger = (*DB)(nil)

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(mysql.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection, used by the readiness probe
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates or updates the ledger table
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(&AlertSent{})
}

// LastAlertAt returns when an alert with the given key was last delivered
func (db *DB) LastAlertAt(ctx context.Context, key string) (time.Time, bool, error) {
	var row AlertSent
	result := db.conn.WithContext(ctx).
		Where("alert_key = ?", key).
		Order("created_ts DESC").
		First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		metrics.RecordDatabaseQuery("last_alert", nil)
		return time.Time{}, false, nil
	}
	metrics.RecordDatabaseQuery("last_alert", result.Error)
	if result.Error != nil {
		return time.Time{}, false, result.Error
	}
	return time.Unix(row.CreatedTS, 0), true, nil
}

// RecordAlert inserts a ledger row for a delivered alert
func (db *DB) RecordAlert(ctx context.Context, payload *alerts.AlertPayload) error {
	row := alertSentFromPayload(payload)
	err := db.conn.WithContext(ctx).Create(row).Error
	metrics.RecordDatabaseQuery("record_alert", err)
	return err
}

func alertSentFromPayload(p *alerts.AlertPayload) *AlertSent {
	created := p.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	return &AlertSent{
		AlertKey:     p.Key(),
		ScanID:       p.ScanID,
		Severity:     string(p.Severity),
		Source:       p.Source,
		Title:        p.Title,
		Link:         p.Link,
		Topic:        p.Topic,
		CurrentPrice: p.CurrentPrice,
		FairValue:    p.FairValue,
		Edge:         p.Edge,
		Confidence:   p.Confidence,
		CreatedTS:    created.Unix(),
	}
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
