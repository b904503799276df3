package domain

import "time"

// ChargePoint is one physical charging station, owning one or more EVSEs.
// If DeviceSerialNumber is set it must resolve to an existing Device.
type ChargePoint struct {
	ID                 string  `json:"id" gorm:"primaryKey"`
	SiteID             string  `json:"site_id" gorm:"index"`
	Vendor             string  `json:"vendor"`
	Model              string  `json:"model"`
	SerialNumber       string  `json:"serial_number" gorm:"uniqueIndex"`
	FirmwareVersion    string  `json:"firmware_version"`
	DeviceSerialNumber *string `json:"device_serial_number,omitempty" gorm:"index"`

	Site   *Site   `json:"site,omitempty" gorm:"foreignKey:SiteID"`
	Device *Device `json:"device,omitempty" gorm:"foreignKey:DeviceSerialNumber;references:SerialNumber"`
	EVSEs  []EVSE  `json:"evses,omitempty" gorm:"foreignKey:ChargePointID"`

	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

