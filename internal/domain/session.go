package domain

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "Active"
	SessionStatusCompleted SessionStatus = "Completed"
	SessionStatusAborted   SessionStatus = "Aborted"
)

// ChargingSession is one ongoing or completed transaction, identified by a
// CSMS-assigned, monotonically-increasing-per-charge-point TransactionID.
// While Status=Active, EndTime and MeterStop are nil. At most one Active
// session may exist per (ChargePointID, EVSEID).
type ChargingSession struct {
	ID            string        `json:"id" gorm:"primaryKey"`
	TransactionID int64         `json:"transaction_id" gorm:"uniqueIndex"`
	ChargePointID string        `json:"charge_point_id" gorm:"index:idx_session_cp_evse"`
	EVSEID        int           `json:"evse_id" gorm:"index:idx_session_cp_evse"`
	IDTag         string        `json:"id_tag"`
	UserID        *string       `json:"user_id,omitempty"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       *time.Time    `json:"end_time,omitempty"`
	MeterStart    int64         `json:"meter_start"`
	MeterStop     *int64        `json:"meter_stop,omitempty"`
	Status        SessionStatus `json:"status"`
	StopReason    string        `json:"stop_reason,omitempty"`

	MeterValues []MeterValue `json:"meter_values,omitempty" gorm:"foreignKey:SessionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnergyWh returns the delivered energy in watt-hours for a completed
// session, or the running total so far for an active one.
func (s *ChargingSession) EnergyWh(currentMeter int64) int64 {
	if s.MeterStop != nil {
		return *s.MeterStop - s.MeterStart
	}
	return currentMeter - s.MeterStart
}

// DurationSeconds returns the session duration, using end as the
// reference instant for a still-active session.
func (s *ChargingSession) DurationSeconds(end time.Time) float64 {
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime).Seconds()
}

// MeterValue is a periodic energy/power sample appended to a session.
type MeterValue struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID string    `json:"session_id" gorm:"index"`
	Timestamp time.Time `json:"timestamp"`
	Measurand string    `json:"measurand"`
	Value     string    `json:"value"`
	Unit      string    `json:"unit"`
}
