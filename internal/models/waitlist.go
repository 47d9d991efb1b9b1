package models

import "time"

// WaitlistEntry is one signup for an application. Rows are written once and never updated.
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;default:''" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:idx_waitlist_email_app,priority:1" json:"email"`
	AppSlug   string    `gorm:"size:64;not null;uniqueIndex:idx_waitlist_email_app,priority:2;index:idx_waitlist_app_created,priority:1" json:"app_slug"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `gorm:"not null;index:idx_waitlist_app_created,priority:2" json:"created_at"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}
