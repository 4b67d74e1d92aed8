package models

import "time"

// BlacklistEntry marks an IP address as blocked by an administrator.
type BlacklistEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	IPAddress string    `gorm:"uniqueIndex;not null;size:64" json:"ip_address"`
	Reason    string    `gorm:"size:255" json:"reason"`
	AddedBy   string    `gorm:"not null;size:64" json:"added_by"`
	AddedAt   time.Time `gorm:"not null" json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the admin table name stable across renames.
func (BlacklistEntry) TableName() string {
	return "ip_blacklist"
}
