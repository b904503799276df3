package domain

import "time"

// EVSEStatusValue is one state of the EVSE state machine described in
// the dispatcher's StatusNotification/StartTransaction/StopTransaction
// handling.
type EVSEStatusValue string

const (
	EVSEStatusUnknown       EVSEStatusValue = "Unknown"
	EVSEStatusAvailable     EVSEStatusValue = "Available"
	EVSEStatusPreparing     EVSEStatusValue = "Preparing"
	EVSEStatusCharging      EVSEStatusValue = "Charging"
	EVSEStatusSuspendedEV   EVSEStatusValue = "SuspendedEV"
	EVSEStatusSuspendedEVSE EVSEStatusValue = "SuspendedEVSE"
	EVSEStatusFinishing     EVSEStatusValue = "Finishing"
	EVSEStatusReserved      EVSEStatusValue = "Reserved"
	EVSEStatusUnavailable   EVSEStatusValue = "Unavailable"
	EVSEStatusFaulted       EVSEStatusValue = "Faulted"
)

// StationEVSEID is the synthetic EVSE index StatusNotification connectorId=0
// maps to — it represents the whole charge point rather than one connector.
const StationEVSEID = 0

// EVSE is one socket/connector on a ChargePoint. (ChargePointID, EVSEID) is
// unique.
type EVSE struct {
	ID            uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	ChargePointID string  `json:"charge_point_id" gorm:"uniqueIndex:idx_cp_evse"`
	EVSEID        int     `json:"evse_id" gorm:"uniqueIndex:idx_cp_evse"`
	ConnectorType string  `json:"connector_type"`
	MaxPowerKW    float64 `json:"max_power_kw"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EVSEStatus is the current liveness/availability of an EVSE. Exactly one
// row exists per EVSE; transitions are monotonically timestamped so a
// stale StatusNotification can never regress a fresher one.
type EVSEStatus struct {
	EVSEID        int             `json:"evse_id" gorm:"primaryKey;autoIncrement:false"`
	ChargePointID string          `json:"charge_point_id" gorm:"primaryKey"`
	Status        EVSEStatusValue `json:"status"`
	ErrorCode     string          `json:"error_code,omitempty"`
	LastSeen      time.Time       `json:"last_seen"`
}

// Apply overwrites s with next if next is not older than the status
// currently recorded, implementing last-writer-wins by timestamp.
func (s *EVSEStatus) Apply(next EVSEStatusValue, errorCode string, at time.Time) bool {
	if at.Before(s.LastSeen) {
		return false
	}
	s.Status = next
	s.ErrorCode = errorCode
	s.LastSeen = at
	return true
}
