package domain

import "time"

type DeviceEventType string

const (
	DeviceEventBoot       DeviceEventType = "boot"
	DeviceEventHeartbeat  DeviceEventType = "heartbeat"
	DeviceEventStatus     DeviceEventType = "status"
	DeviceEventError      DeviceEventType = "error"
	DeviceEventSessionOp  DeviceEventType = "session"
)

// DeviceEvent is an append-only audit row recording boot, heartbeat,
// status transitions, and errors for a charge point.
type DeviceEvent struct {
	ID                 uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	ChargePointID      string          `json:"charge_point_id" gorm:"index"`
	DeviceSerialNumber string          `json:"device_serial_number,omitempty"`
	EventType          DeviceEventType `json:"event_type"`
	Timestamp          time.Time       `json:"timestamp"`
	Details            string          `json:"details,omitempty"`
}
