package interactions

import (
	"context"
	"fmt"

	"github.com/brightsphere/ai-gateway/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the durable sink for interactions and analytics events.
type Store interface {
	SaveInteraction(ctx context.Context, entry *Entry) error
	SaveEvent(ctx context.Context, event *AnalyticsEvent) error
	Close() error
}

// NoopStore discards everything. It is used when no database is configured.
type NoopStore struct{}

var _ Store = NoopStore{}

func (NoopStore) SaveInteraction(context.Context, *Entry) error    { return nil }
func (NoopStore) SaveEvent(context.Context, *AnalyticsEvent) error { return nil }
func (NoopStore) Close() error                                     { return nil }

// PostgresStore writes rows through gorm to Postgres (Supabase).
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

// PostgresConfig configures NewPostgresStore.
type PostgresConfig struct {
	DSN         string
	AutoMigrate bool
	Logger      logger.Logger
}

// NewPostgresStore opens the database and, when asked, migrates both tables.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := NewStoreWithDB(db)
	if cfg.AutoMigrate {
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		if cfg.Logger != nil {
			cfg.Logger.Printf("Migrated tables %s and %s", Entry{}.TableName(), AnalyticsEvent{}.TableName())
		}
	}

	return store, nil
}

// NewStoreWithDB wraps an already opened gorm handle.
func NewStoreWithDB(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates or updates the interaction tables.
func (s *PostgresStore) Migrate() error {
	if err := s.db.AutoMigrate(&Entry{}, &AnalyticsEvent{}); err != nil {
		return fmt.Errorf("failed to migrate interaction tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveInteraction(ctx context.Context, entry *Entry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert interaction %s: %w", entry.ID, err)
	}
	return nil
}

func (s *PostgresStore) SaveEvent(ctx context.Context, event *AnalyticsEvent) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to insert analytics event %s: %w", event.ID, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
