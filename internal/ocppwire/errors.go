package ocppwire

// OCPP 1.6 CALLERROR error codes, propagated verbatim across all three
// transports.
const (
	ErrFormationViolation          = "FormationViolation"
	ErrTypeConstraintViolation     = "TypeConstraintViolation"
	ErrPropertyConstraintViolation = "PropertyConstraintViolation"
	ErrOccurrenceConstraintViolation = "OccurrenceConstraintViolation"
	ErrNotSupported                = "NotSupported"
	ErrInternalError               = "InternalError"
	ErrProtocolError               = "ProtocolError"
	ErrNotConnected                = "NotConnected"
	ErrRequestTimeout              = "RequestTimeout"
	ErrConnectionClosed            = "ConnectionClosed"
	ErrAuthenticationFailed        = "AuthenticationFailed"
)

// OCPPError is the CALLERROR shape every transport renders into its own
// wire format and every dispatcher handler returns on validation failure.
type OCPPError struct {
	Code        string
	Description string
	Details     interface{}
}

func (e *OCPPError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Description
}
