package models

import "time"

// DeviceIdentity remembers which account a browser was provisioned with.
type DeviceIdentity struct {
	DeviceID  string    `gorm:"primaryKey;size:64" json:"device_id"`
	UID       string    `gorm:"not null;index" json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}
