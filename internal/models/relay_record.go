package models

import "time"

// RelayRecord is one row of the append-only relay ledger: the cross-reference
// between a sender's original message and the copy delivered to the recipient.
// A record is written only after delivery has been confirmed, and is never
// updated or deleted afterwards.
type RelayRecord struct {
	ID uint `gorm:"primaryKey"`

	SenderID        int64 `gorm:"not null;index:idx_sender_pair"`
	SenderMessageID int   `gorm:"not null;index:idx_sender_pair"`

	// One delivered copy maps to exactly one original, hence the composite
	// unique index on the recipient pair.
	RecipientID        int64 `gorm:"not null;uniqueIndex:idx_recipient_pair"`
	RecipientMessageID int   `gorm:"not null;uniqueIndex:idx_recipient_pair"`

	CreatedAt time.Time
}
