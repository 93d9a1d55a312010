package database

import (
	"context"
	"errors"
	"fmt"

	"storefront-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceCache is the identity cache kept in the relational database.
type DeviceCache struct {
	DB *gorm.DB
}

func (c *DeviceCache) Lookup(ctx context.Context, deviceID string) (string, bool, error) {
	var row models.DeviceIdentity
	err := c.DB.WithContext(ctx).Where("device_id = ?", deviceID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.UID, true, nil
}

// Remember stores the device's account and returns the account the device is
// bound to afterwards. The first write for a device wins, so the result differs
// from uid when another instance got there first.
func (c *DeviceCache) Remember(ctx context.Context, deviceID, uid string) (string, error) {
	row := models.DeviceIdentity{DeviceID: deviceID, UID: uid}
	res := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return uid, nil
	}
	stored, ok, err := c.Lookup(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("device %s: conflicting row vanished", deviceID)
	}
	return stored, nil
}
