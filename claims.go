package passbridge

import "time"

const (
	saveAudience  = "google"
	saveTokenType = "savetowallet"
)

// SaveClaims represents the claims of a save-to-wallet token.
type SaveClaims struct {
	Issuer   string
	Audience []string
	Type     string
	Origins  []string
	IssuedAt time.Time
	Payload  Payload
}
