package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// University is a registered campus. Registration requires an email on the
// university's domain; activeListings is a denormalized counter kept in step
// with listing lifecycle changes.
type University struct {
	UniversityID   uuid.UUID `gorm:"column:university_id;type:uuid;primaryKey" json:"university_id"`
	Name           string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	EmailDomain    string    `gorm:"column:email_domain;not null" json:"email_domain"`
	City           string    `gorm:"column:city" json:"city"`
	State          string    `gorm:"column:state" json:"state"`
	ActiveListings int       `gorm:"column:active_listings;not null" json:"active_listings"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (University) TableName() string {
	return "Universities"
}

func (u *University) BeforeCreate(tx *gorm.DB) error {
	if u.UniversityID == uuid.Nil {
		u.UniversityID = uuid.New()
	}
	return nil
}
