package domain

// RevokedToken is one entry in the append-only session revocation ledger.
// The auth middleware rejects any JWT whose jti appears here.
type RevokedToken struct {
	EntryID   string `json:"id" dynamodbav:"entry_id"`
	JTI       string `json:"jti" dynamodbav:"jti"`
	RevokedAt int64  `json:"revoked_at" dynamodbav:"revoked_at"` // Unix seconds
}
