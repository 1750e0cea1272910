package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("tokenstore.database.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("tokenstore.database.empty_url")
	errSQLiteEmptyPath     = errors.New("tokenstore.database.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("tokenstore.database.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("tokenstore.database.no_scheme")
)

// DatabaseKeyValueStore keeps client credentials in a SQL table through GORM.
type DatabaseKeyValueStore struct {
	db          *gorm.DB
	driverLabel string
}

type clientTokenRecord struct {
	Key         string `gorm:"column:token_key;primaryKey"`
	Value       string `gorm:"column:token_value;not null"`
	UpdatedUnix int64  `gorm:"column:updated_unix;not null"`
}

func (clientTokenRecord) TableName() string {
	return "client_tokens"
}

// NewDatabaseKeyValueStore opens the database and migrates the client_tokens table.
func NewDatabaseKeyValueStore(ctx context.Context, databaseURL string) (*DatabaseKeyValueStore, error) {
	gormDB, driverLabel, err := OpenGormDB(databaseURL)
	if err != nil {
		return nil, err
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(&clientTokenRecord{}); migrateErr != nil {
		return nil, fmt.Errorf("tokenstore.database.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &DatabaseKeyValueStore{db: gormDB, driverLabel: driverLabel}, nil
}

// OpenGormDB opens a sqlite:// or postgres:// URL with GORM and reports the driver label.
func OpenGormDB(databaseURL string) (*gorm.DB, string, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, "", fmt.Errorf("tokenstore.database.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, err := resolveDialector(databaseURL)
	if err != nil {
		return nil, "", err
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if openErr != nil {
		return nil, "", fmt.Errorf("tokenstore.database.open.%s: %w", driverLabel, openErr)
	}
	return gormDB, driverLabel, nil
}

// Driver exposes the selected database driver label.
func (store *DatabaseKeyValueStore) Driver() string {
	return store.driverLabel
}

// Get returns the row for key.
func (store *DatabaseKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	var record clientTokenRecord
	err := store.db.WithContext(ctx).Where("token_key = ?", key).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("tokenstore.database.get.%s: %w", store.driverLabel, err)
	}
	return record.Value, true, nil
}

// Set upserts the row for key.
func (store *DatabaseKeyValueStore) Set(ctx context.Context, key string, value string) error {
	record := clientTokenRecord{
		Key:         key,
		Value:       value,
		UpdatedUnix: time.Now().UTC().Unix(),
	}
	err := store.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_value", "updated_unix"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("tokenstore.database.set.%s: %w", store.driverLabel, err)
	}
	return nil
}

// Remove deletes the row for key; a missing row is not an error.
func (store *DatabaseKeyValueStore) Remove(ctx context.Context, key string) error {
	if err := store.db.WithContext(ctx).Where("token_key = ?", key).Delete(&clientTokenRecord{}).Error; err != nil {
		return fmt.Errorf("tokenstore.database.remove.%s: %w", store.driverLabel, err)
	}
	return nil
}

// Close closes the connection pool behind the GORM handle.
func (store *DatabaseKeyValueStore) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return fmt.Errorf("tokenstore.database.close.%s: %w", store.driverLabel, err)
	}
	return sqlDB.Close()
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("tokenstore.database.parse_url: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("tokenstore.database.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("tokenstore.database.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("tokenstore.database.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
