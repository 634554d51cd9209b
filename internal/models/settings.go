package models

import (
	"strings"
	"time"
)

// SettingsID is the primary key of the single settings row
const SettingsID = 1

// Settings holds the global automatic-processing configuration
type Settings struct {
	ID                          uint `gorm:"primaryKey"`
	AutomaticProcessingEnabled  bool
	AutomaticProcessingSchedule *string
	Timezone                    string

	UpdatedAt time.Time
}

// Validate checks the schedule expression and timezone
func (s *Settings) Validate() error {
	if s.AutomaticProcessingSchedule != nil && strings.TrimSpace(*s.AutomaticProcessingSchedule) != "" {
		if err := ValidateCronExpression(*s.AutomaticProcessingSchedule); err != nil {
			return err
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return &ValidationError{Field: "timezone", Reason: err.Error()}
		}
	}
	if s.AutomaticProcessingEnabled && (s.AutomaticProcessingSchedule == nil || strings.TrimSpace(*s.AutomaticProcessingSchedule) == "") {
		return &ValidationError{Field: "schedule", Reason: "required when automatic processing is enabled"}
	}
	return nil
}

// ProviderConfig stores the per-user credential for a provider.
// Trakt uses a client id, MDBList an API key.
type ProviderConfig struct {
	ID         uint     `gorm:"primaryKey"`
	UserID     uint     `gorm:"uniqueIndex:idx_provider_user"`
	Provider   Provider `gorm:"uniqueIndex:idx_provider_user"`
	Credential string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DestinationConfig is the per-user connection profile for the request manager
type DestinationConfig struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  uint   `gorm:"uniqueIndex"`
	BaseURL string `gorm:"not null"`
	APIKey  string `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Configured reports whether the profile can be used
func (d *DestinationConfig) Configured() bool {
	return d != nil && d.BaseURL != "" && d.APIKey != ""
}
