package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite" // SQLite dialect over mattn/go-sqlite3
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the persistence gateway for the users and chats tables.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by dsn and migrates the schema.
// postgres:// and postgresql:// URLs select PostgreSQL; anything else is
// treated as a SQLite path or URI.
func Open(dsn string) (*Store, error) {
	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var dialector gorm.Dialector
	if isPostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if !isPostgres {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) initSchema() error {
	return s.db.AutoMigrate(&User{}, &ChatExchange{})
}

// User methods

// EnsureUser inserts u unless a row with the same user_id already exists.
// It reports whether a new row was written.
func (s *Store) EnsureUser(ctx context.Context, u *User) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert user: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetUserByID returns nil, nil when no user has the given id.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// ChatExchange methods

func (s *Store) CreateChatExchange(ctx context.Context, exchange *ChatExchange) error {
	if err := s.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return fmt.Errorf("failed to insert chat exchange: %w", err)
	}
	return nil
}

// GetChatHistoryWindow returns at most limit exchanges for userID, oldest first.
// The limit is applied to the creation-time ordering, so once a user has more
// than limit exchanges the window holds the earliest ones.
func (s *Store) GetChatHistoryWindow(ctx context.Context, userID string, limit int) ([]ChatExchange, error) {
	exchanges := []ChatExchange{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	return exchanges, nil
}

func (s *Store) GetChatExchangesByUserID(ctx context.Context, userID string) ([]ChatExchange, error) {
	exchanges := []ChatExchange{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&exchanges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query chat exchanges: %w", err)
	}
	return exchanges, nil
}
