package guard

const (
	prefixOTP       = "otp:"
	prefixRateLimit = "ratelimit:"
	prefixFailed    = "failed_otp:"
)

// Dimension is the axis a rate limit counts on.
type Dimension string

const (
	DimensionEmail Dimension = "email"
	DimensionAddr  Dimension = "addr"
)

func otpKey(identity string) string { return prefixOTP + identity }

func rateKey(d Dimension, key string) string { return prefixRateLimit + string(d) + ":" + key }

func failedKey(identity string) string { return prefixFailed + identity }
