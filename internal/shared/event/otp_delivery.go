package event

const OTPDeliveryDestination string = "otp_delivery"
const OTPDeliveryConsumerEmail string = "otp_delivery_email"

// OTPDeliveryMessage asks the notification module to send a code.
type OTPDeliveryMessage struct {
	EventID       string `json:"event_id"`
	Email         string `json:"email"`
	Code          string `json:"code"`
	ExpirySeconds int64  `json:"expiry_seconds"`
}
