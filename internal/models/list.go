package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	MinMaxItems = 1
	MaxMaxItems = 50
)

// MediaList is a user-configured provider list
type MediaList struct {
	ID         uint     `gorm:"primaryKey"`
	UserID     uint     `gorm:"index;not null"`
	Name       string   `gorm:"not null"`
	SourceURL  string   `gorm:"not null"` // URL or identifier the provider API resolves
	DisplayURL string   // URL shown to users, may differ from SourceURL
	Provider   Provider `gorm:"not null"`
	Enabled    bool     `gorm:"index"`
	MaxItems   int      `gorm:"not null;default:20"`
	Schedule   *string  // Optional cron expression

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateMaxItems checks n against the allowed range
func ValidateMaxItems(n int) error {
	if n < MinMaxItems || n > MaxMaxItems {
		return &ValidationError{
			Field:  "max_items",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinMaxItems, MaxMaxItems, n),
		}
	}
	return nil
}

// ChangeMaxItems sets the item cap. Out-of-range values are rejected and
// the previous value is kept.
func (l *MediaList) ChangeMaxItems(n int) error {
	if err := ValidateMaxItems(n); err != nil {
		return err
	}
	l.MaxItems = n
	return nil
}

// ChangeSchedule sets or clears (empty string) the list's cron expression
func (l *MediaList) ChangeSchedule(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		l.Schedule = nil
		return nil
	}
	if err := ValidateCronExpression(expr); err != nil {
		return err
	}
	l.Schedule = &expr
	return nil
}

// Validate checks a list before it is persisted
func (l *MediaList) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(l.SourceURL) == "" {
		return &ValidationError{Field: "source_url", Reason: "must not be empty"}
	}
	if !l.Provider.Valid() {
		return &ValidationError{Field: "provider", Reason: fmt.Sprintf("unsupported provider %q", l.Provider)}
	}
	if err := ValidateMaxItems(l.MaxItems); err != nil {
		return err
	}
	if l.Schedule != nil {
		if err := ValidateCronExpression(*l.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// Schedulable reports whether automatic processing should pick up this list
func (l *MediaList) Schedulable() bool {
	return l.Enabled && strings.TrimSpace(l.SourceURL) != ""
}

// ValidateCronExpression checks a standard 5-field cron expression
func ValidateCronExpression(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return &ValidationError{Field: "schedule", Reason: err.Error()}
	}
	return nil
}
