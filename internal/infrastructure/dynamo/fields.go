package dynamo

// DynamoDB attribute names guarded by uniqueness markers.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUsername = "username"
	fieldEmail    = "email"
)
