// Package sqlite keeps alerts in a local SQLite database through gorm. It is
// the offline stand-in for the hosted bucket and shares its semantics: rows
// are append-only and the alert id carries no uniqueness constraint.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/fibersight-alerts-service/internal/domain"
)

// alertRow is the persisted form of an alert. Row identity (Seq) is assigned
// by the database; AlertID is indexed but may repeat.
type alertRow struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement"`
	AlertID   string    `gorm:"index;not null"`
	Type      string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	Timestamp time.Time `gorm:"index"`
	FiberID   string
	CreatedAt time.Time `gorm:"index"`
}

func (alertRow) TableName() string { return "alerts" }

func (r alertRow) toDomain() domain.AlertRecord {
	return domain.AlertRecord{
		ID:        r.AlertID,
		Type:      r.Type,
		Message:   r.Message,
		Timestamp: r.Timestamp.UTC(),
		FiberID:   r.FiberID,
	}
}

// Store implements the alert store on SQLite.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open creates the database file (and its directory) if needed and migrates
// the alerts table.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&alertRow{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("sqlite alert store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// ListAlerts returns up to limit alerts, most recently inserted first.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	return s.find(ctx, limit, "seq DESC")
}

// LatestAlerts returns up to limit alerts by alert timestamp, newest first.
func (s *Store) LatestAlerts(ctx context.Context, limit int) ([]domain.AlertRecord, error) {
	return s.find(ctx, limit, "timestamp DESC, seq DESC")
}

func (s *Store) find(ctx context.Context, limit int, order string) ([]domain.AlertRecord, error) {
	var rows []alertRow
	if err := s.db.WithContext(ctx).Order(order).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	alerts := make([]domain.AlertRecord, len(rows))
	for i, r := range rows {
		alerts[i] = r.toDomain()
	}
	return alerts, nil
}

// InsertAlert appends one alert row.
func (s *Store) InsertAlert(ctx context.Context, alert domain.AlertRecord) error {
	row := alertRow{
		AlertID:   alert.ID,
		Type:      alert.Type,
		Message:   alert.Message,
		Timestamp: alert.Timestamp.UTC(),
		FiberID:   alert.FiberID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert alert %s: %w", alert.ID, err)
	}
	s.logger.Debug("alert saved", "alert_id", alert.ID, "seq", row.Seq)
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying *sql.DB: %w", err)
	}
	return sqlDB.Close()
}
