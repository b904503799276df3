package domain

// Device is the credentialed physical unit behind a ChargePoint. The MQTT
// client id is canonically "{type_code}&{serial}"; the MQTT username is the
// serial number itself. MasterSecretCiphertext is the at-rest encrypted form
// of the per-type shared secret used to derive per-device passwords (see
// internal/credential).
type Device struct {
	SerialNumber            string `json:"serial_number" gorm:"primaryKey"`
	TypeCode                string `json:"type_code" gorm:"index"`
	MasterSecretCiphertext  string `json:"-"`
	EncryptionAlgorithm     string `json:"encryption_algorithm"`
	IsActive                bool   `json:"is_active" gorm:"default:true"`
}

// MQTTClientID returns the canonical "{typeCode}&{serial}" client id.
func (d Device) MQTTClientID() string {
	return d.TypeCode + "&" + d.SerialNumber
}

// MQTTUsername is always the device serial number.
func (d Device) MQTTUsername() string {
	return d.SerialNumber
}
