package models

import "time"

// User represents a registered chat identity.
// The primary key is the Telegram chat ID; it is never regenerated.
type User struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false" json:"id"`

	// LinkCode is the short opaque token embedded in the user's share link.
	// Issued once on first contact and never rotated afterwards.
	LinkCode string `gorm:"uniqueIndex;size:8;not null"`

	// InvitedBy references the user whose link brought this user in.
	// Set at most once, on row creation; never overwritten.
	InvitedBy *int64 `gorm:"index"`

	FirstActivity time.Time `gorm:"autoCreateTime"`
	LastActivity  time.Time `gorm:"autoCreateTime"`

	// AnswerTipEnabled controls whether delivered messages carry the
	// "how to reply" affordance. One-way settable to false.
	AnswerTipEnabled bool `gorm:"default:true"`
}
