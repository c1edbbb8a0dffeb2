package models

import "time"

// PermissionChangeProfile is the fixed permission granted to every
// self-registered user so they can edit their own profile record.
const PermissionChangeProfile = "profile.change"

// Permission is a catalog entry granted to users directly. The catalog is
// seeded at startup; user creation fails when a required entry is absent.
// The primary key is a stable slug such as "profile.change".
type Permission struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`

	Users []User `gorm:"many2many:user_permissions;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
