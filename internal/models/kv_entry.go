package models

import "time"

// KVEntry stores one content store value in the SQL backend.
type KVEntry struct {
	Namespace string     `gorm:"column:namespace;type:varchar(64);primaryKey"`  // Store namespace.
	Key       string     `gorm:"column:entry_key;type:varchar(255);primaryKey"` // Key within the namespace.
	Value     []byte     `gorm:"column:value;not null"`                         // Opaque value bytes, returned as written.
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`                       // Expiry instant; nil never expires.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"`                       // Creation timestamp.
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime"`                       // Last update timestamp.
}

// TableName pins the table name.
func (KVEntry) TableName() string { return "kv_entries" }
