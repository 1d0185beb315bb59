package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunRecord is one benchmark or live run, appended when the run ends.
type RunRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Mode       string    `gorm:"index;size:16"`
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time

	Ticks      uint64
	Triggers   uint64
	Emitted    uint64
	Dropped    uint64
	Submitted  uint64
	Acks       uint64
	Fills      uint64
	GateBlocks uint64
	Cooldowns  uint64

	P50Micros     float64
	P95Micros     float64
	P99Micros     float64
	P999Micros    float64
	MaxMicros     float64
	ThroughputTPS float64
	TargetP95Ms   float64
	TargetP95Met  bool
	SummaryJSON   string `gorm:"type:text"`
}

// Storage persists run history in SQLite (pure Go driver).
type Storage struct {
	db *gorm.DB
}

// NewStorage opens or creates the database at path. ":memory:" is accepted.
func NewStorage(path string) (*Storage, error) {
	if path != ":memory:" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// SaveRun inserts or replaces a run record.
func (s *Storage) SaveRun(r *RunRecord) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	return s.db.Save(r).Error
}

// GetRun retrieves a run by id. A missing run is (nil, nil).
func (s *Storage) GetRun(id string) (*RunRecord, error) {
	var r RunRecord
	err := s.db.First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentRuns returns up to limit runs, newest first, optionally filtered by mode.
func (s *Storage) RecentRuns(mode string, limit int) ([]RunRecord, error) {
	q := s.db.Order("started_at DESC")
	if mode != "" {
		q = q.Where("mode = ?", mode)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []RunRecord
	err := q.Find(&runs).Error
	return runs, err
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
