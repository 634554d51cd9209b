package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const interruptedMessage = "interrupted: process stopped while the execution was running"

// Database wraps the gorm handle and implements every repository the
// controllers and scheduler consume
type Database struct {
	db *gorm.DB
}

// NewDatabase opens (and migrates) the sqlite database at path
func NewDatabase(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&MediaList{},
		&ProcessingExecution{},
		&Settings{},
		&ProviderConfig{},
		&DestinationConfig{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// List operations

// FindListsByUser returns every list owned by userID
func (d *Database) FindListsByUser(ctx context.Context, userID uint) ([]*MediaList, error) {
	var lists []*MediaList
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&lists).Error
	return lists, err
}

// FindList returns the list if it exists and belongs to userID
func (d *Database) FindList(ctx context.Context, userID, listID uint) (*MediaList, error) {
	var list MediaList
	err := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", listID, userID).First(&list).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &list, nil
}

// FindSchedulableLists returns enabled lists of every user, in id order
func (d *Database) FindSchedulableLists(ctx context.Context) ([]*MediaList, error) {
	var lists []*MediaList
	if err := d.db.WithContext(ctx).Where("enabled = ?", true).Order("id").Find(&lists).Error; err != nil {
		return nil, err
	}
	schedulable := lists[:0]
	for _, list := range lists {
		if list.Schedulable() {
			schedulable = append(schedulable, list)
		}
	}
	return schedulable, nil
}

// SaveList validates and inserts or updates a list
func (d *Database) SaveList(ctx context.Context, list *MediaList) error {
	if err := list.Validate(); err != nil {
		return err
	}
	return d.db.WithContext(ctx).Save(list).Error
}

// DeleteList removes a list and its execution history
func (d *Database) DeleteList(ctx context.Context, list *MediaList) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", list.ID).Delete(&ProcessingExecution{}).Error; err != nil {
			return err
		}
		return tx.Delete(list).Error
	})
}

// Execution operations

// SaveExecution inserts the execution when its ID is 0 and updates it otherwise
func (d *Database) SaveExecution(ctx context.Context, execution *ProcessingExecution) (*ProcessingExecution, error) {
	if err := d.db.WithContext(ctx).Save(execution).Error; err != nil {
		return nil, err
	}
	return execution, nil
}

// FindExecutionsByList returns the most recent executions of a list, newest first
func (d *Database) FindExecutionsByList(ctx context.Context, listID uint, limit int) ([]*ProcessingExecution, error) {
	var executions []*ProcessingExecution
	query := d.db.WithContext(ctx).Where("list_id = ?", listID).Order("started_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&executions).Error
	return executions, err
}

// FindExecutionsByBatch returns every execution sharing batchID
func (d *Database) FindExecutionsByBatch(ctx context.Context, batchID string) ([]*ProcessingExecution, error) {
	var executions []*ProcessingExecution
	err := d.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("id").Find(&executions).Error
	return executions, err
}

// MarkInterruptedExecutions moves executions left running by a previous
// process to the error state
func (d *Database) MarkInterruptedExecutions(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Model(&ProcessingExecution{}).
		Where("status = ?", ExecutionRunning).
		Updates(map[string]interface{}{
			"status":        ExecutionError,
			"completed_at":  now,
			"error_message": interruptedMessage,
		})
	return result.RowsAffected, result.Error
}

// Settings operations

// GetSettings returns the stored settings, or disabled defaults when none exist
func (d *Database) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	err := d.db.WithContext(ctx).First(&settings, SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Settings{ID: SettingsID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings validates and stores the single settings row
func (d *Database) SaveSettings(ctx context.Context, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.ID = SettingsID
	return d.db.WithContext(ctx).Save(settings).Error
}

// Provider configuration

// FindProviderConfig returns the user's credential for provider, or ErrNotFound
func (d *Database) FindProviderConfig(ctx context.Context, userID uint, provider Provider) (*ProviderConfig, error) {
	var cfg ProviderConfig
	err := d.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&cfg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

// SaveProviderConfig inserts or updates a provider credential
func (d *Database) SaveProviderConfig(ctx context.Context, cfg *ProviderConfig) error {
	if !cfg.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
	return d.db.WithContext(ctx).Save(cfg).Error
}

// Destination configuration

// FindDestinationConfig returns the user's destination profile, or ErrNotFound
func (d *Database) FindDestinationConfig(ctx context.Context, userID uint) (*DestinationConfig, error) {
	var cfg DestinationConfig
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&cfg).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cfg, nil
}

// SaveDestinationConfig inserts or updates a destination profile
func (d *Database) SaveDestinationConfig(ctx context.Context, cfg *DestinationConfig) error {
	return d.db.WithContext(ctx).Save(cfg).Error
}
