package models

// Profile is the editable portfolio record attached one-to-one to a User.
// The unique index on UserID enforces at most one profile per user; a
// concurrent first-visit race resolves to a uniqueness violation rather
// than a duplicate row.
type Profile struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`

	FirstName string `gorm:"size:20" json:"first_name"`
	LastName  string `gorm:"size:20" json:"last_name"`
	Address   string `gorm:"size:100" json:"address"`
	Phone     string `gorm:"size:15" json:"phone"`

	// Optional geographic point. Both coordinates are set or neither is.
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// PhotoPath is relative to the upload root: "<username>/photo<ext>".
	PhotoPath string `json:"photo_path"`

	Expertise []Expertise `gorm:"many2many:profile_expertise;" json:"expertise,omitempty"`
}

// HasLocation reports whether the profile carries a geographic point.
func (p *Profile) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}
