package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

// searchOutcomeRow is the gorm model of one outcome.
type searchOutcomeRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	SessionID   string    `gorm:"size:36;index"`
	Filename    string    `gorm:"size:16"`
	Descriptor  string    `gorm:"size:32"`
	Similarity  string    `gorm:"size:32"`
	TopN        string    `gorm:"size:4"`
	Status      string    `gorm:"size:16;index"`
	ErrorKind   string    `gorm:"size:16"`
	Error       string    `gorm:"type:text"`
	ResultCount int
	DurationMS  int64
	CreatedAt   time.Time `gorm:"index"`
}

func (searchOutcomeRow) TableName() string {
	return "search_outcomes"
}

type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLiteStore opens dsn and migrates the outcome table.
func OpenSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn required")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewSQLiteStore(db)
}

// NewSQLiteStore wraps an existing handle.
func NewSQLiteStore(db *gorm.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store requires database handle")
	}
	if err := db.AutoMigrate(&searchOutcomeRow{}); err != nil {
		return nil, fmt.Errorf("migrate search_outcomes: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, o models.SearchOutcome) error {
	row := searchOutcomeRow{
		ID:          o.ID,
		SessionID:   o.SessionID,
		Filename:    o.Filename,
		Descriptor:  o.Descriptor,
		Similarity:  o.Similarity,
		TopN:        o.TopN,
		Status:      o.Status,
		ErrorKind:   o.ErrorKind,
		Error:       o.Error,
		ResultCount: o.ResultCount,
		DurationMS:  o.DurationMS,
		CreatedAt:   o.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.SearchOutcome, error) {
	var rows []searchOutcomeRow
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(clampLimit(limit, 0)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.SearchOutcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SearchOutcome{
			ID:          r.ID,
			SessionID:   r.SessionID,
			Filename:    r.Filename,
			Descriptor:  r.Descriptor,
			Similarity:  r.Similarity,
			TopN:        r.TopN,
			Status:      r.Status,
			ErrorKind:   r.ErrorKind,
			Error:       r.Error,
			ResultCount: r.ResultCount,
			DurationMS:  r.DurationMS,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
