// Package audit persists a trail of routing outcomes for observability.
// The trail is advisory: the router runs identically without it, and policy
// never consults it.
package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/switchboard/internal/router"
)

// RoutingRecord is one handled event.
type RoutingRecord struct {
	ID        uint   `gorm:"primaryKey"`
	EventTS   string `gorm:"size:32;index"`
	ThreadTS  string `gorm:"size:32;index"`
	ChannelID string `gorm:"size:32;index"`
	UserID    string `gorm:"size:32"`
	Decision  string `gorm:"size:32;index"`
	Responded bool
	ElapsedMS int64
	CreatedAt time.Time
}

// Summary aggregates routing activity over a period for the digest.
type Summary struct {
	Handled      int64
	Responded    int64
	Ignored      int64
	NewThreads   int64
	Continued    int64
	AvgElapsedMS float64
}

// Store records routing outcomes. Implements the router's Recorder.
type Store struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite-backed store at path.
func OpenSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite %s: %w", path, err)
	}
	return NewStore(db)
}

// OpenMySQL opens a MySQL-backed store.
func OpenMySQL(host string, port int, user, database string) (*Store, error) {
	dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", user, host, port, database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: connect to %s:%d/%s: %w", host, port, database, err)
	}
	return NewStore(db)
}

// NewStore wraps an open gorm connection and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: db is required")
	}
	if err := db.AutoMigrate(&RoutingRecord{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record persists one routing outcome.
func (s *Store) Record(ctx context.Context, o router.Outcome) error {
	rec := RoutingRecord{
		EventTS:   o.Event.MessageTS,
		ThreadTS:  o.Event.ThreadTS,
		ChannelID: o.Event.ChannelID,
		UserID:    o.Event.UserID,
		Decision:  o.Decision.String(),
		Responded: o.Responded,
		ElapsedMS: o.Elapsed.Milliseconds(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Summarize computes activity counts since the given instant.
func (s *Store) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	var sum Summary
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&RoutingRecord{}).Where("created_at >= ?", since)
	}

	if err := base().Count(&sum.Handled).Error; err != nil {
		return Summary{}, fmt.Errorf("audit: summarize: %w", err)
	}
	counts := []struct {
		decision string
		dst      *int64
	}{
		{router.Ignore.String(), &sum.Ignored},
		{router.NewSupervision.String(), &sum.NewThreads},
		{router.ContinueSupervision.String(), &sum.Continued},
	}
	for _, c := range counts {
		if err := base().Where("decision = ?", c.decision).Count(c.dst).Error; err != nil {
			return Summary{}, fmt.Errorf("audit: summarize: %w", err)
		}
	}
	if err := base().Where("responded = ?", true).Count(&sum.Responded).Error; err != nil {
		return Summary{}, fmt.Errorf("audit: summarize: %w", err)
	}
	if sum.Responded > 0 {
		row := s.db.WithContext(ctx).Model(&RoutingRecord{}).
			Where("created_at >= ? AND responded = ?", since, true).
			Select("AVG(elapsed_ms)")
		if err := row.Scan(&sum.AvgElapsedMS).Error; err != nil {
			return Summary{}, fmt.Errorf("audit: summarize: %w", err)
		}
	}
	return sum, nil
}
