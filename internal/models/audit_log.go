package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit log actions written by the authentication flow.
const (
	AuditActionLoggedIn    = "user_logged_in"
	AuditActionLoggedOut   = "user_logged_out"
	AuditActionLoginFailed = "user_login_failed"
)

// AuditLog is an immutable record of an authentication event. Email is kept
// even when it matches no user: failed logins store whatever was submitted.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	Action    string         `gorm:"not null;index" json:"action"`
	IPAddress string         `json:"ip"`
	Email     string         `gorm:"size:256;index" json:"email"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
