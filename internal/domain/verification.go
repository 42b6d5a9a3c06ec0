package domain

import "time"

// Activation token channels. The emailed link and the web UI use distinct
// token values bound to the same activation attempt.
const (
	ChannelEmail = "email"
	ChannelWeb   = "web"
)

// ActivationTokenTTL is the advisory lifetime of a verification record.
// Expiry is only checked by the activation-consumption path.
const ActivationTokenTTL = 300 * time.Second

// ActivationToken is one opaque channel token bound to a pending activation.
// PK: token, so lookups by either channel value are a single GetItem.
type ActivationToken struct {
	Token     string `json:"token" dynamodbav:"token"`
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Channel   string `json:"channel" dynamodbav:"channel"` // "email" | "web"
	CreatedAt int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds; DynamoDB TTL attribute
}

// VerificationRecord aggregates one activation attempt: both channel tokens
// plus the advisory expiry. Created once per registration and once per
// login-while-inactive; never updated in place except timestamps.
type VerificationRecord struct {
	RecordID   string    `json:"id" dynamodbav:"record_id"`
	UserID     string    `json:"user_id" dynamodbav:"user_id"`
	TokenEmail string    `json:"token_email" dynamodbav:"token_email"`
	TokenWeb   string    `json:"token_web" dynamodbav:"token_web"`
	ExpiresAt  int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, created_at + 300
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// VerificationHandle is the subset of a VerificationRecord returned to a
// client so it can track or resume activation. Only the web-channel token
// is exposed; the email token travels exclusively in the activation link.
type VerificationHandle struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Handle extracts the client-facing subset of a record.
func (r *VerificationRecord) Handle() *VerificationHandle {
	return &VerificationHandle{
		Token:     r.TokenWeb,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
