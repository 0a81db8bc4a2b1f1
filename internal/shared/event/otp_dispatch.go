package event

const OTPDispatchDestination string = "otp_dispatch"
const OTPDispatchConsumerNotification string = "otp_dispatch_notification"

// OTPDispatchMessage asks the notification module to deliver a code. It is the
// only place the plaintext code leaves the otp module.
type OTPDispatchMessage struct {
	EventID          int64  `json:"event_id"`
	RecordID         string `json:"record_id"`
	Identifier       string `json:"identifier"`
	MaskedIdentifier string `json:"masked_identifier"`
	Channel          string `json:"channel"`
	Purpose          string `json:"purpose"`
	Code             string `json:"code"`
	ExpirySeconds    int64  `json:"expiry_seconds"`
	DisplayName      string `json:"display_name,omitempty"`
}
