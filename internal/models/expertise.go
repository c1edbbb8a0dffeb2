package models

// Expertise is a catalog label (e.g. "Go", "PostgreSQL") attachable to
// profiles. Listing order is alphabetical; lifecycle is administrator-managed.
type Expertise struct {
	BaseModel

	Name string `gorm:"size:15;uniqueIndex;not null" json:"name"`

	Profiles []Profile `gorm:"many2many:profile_expertise;" json:"-"`
}
