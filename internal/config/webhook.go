package config

// Webhook holds the settings for inbound relay and chain notifications
type Webhook struct {
	// Secret is the shared HMAC-SHA256 key used to verify the signature header
	Secret          string `mapstructure:"secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	EventHeader     string `mapstructure:"event_header"`
}
