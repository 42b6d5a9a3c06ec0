package domain

import "time"

type User struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	AvatarID     string    `json:"-" dynamodbav:"avatar_id"`
	Avatar       string    `json:"avatar" dynamodbav:"avatar"`
	IsActive     bool      `json:"is_active" dynamodbav:"is_active"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Username and email are globally unique; the store rejects inserts (and
// updates) that would violate either constraint.
const (
	MaxUsernameLen = 20
	MaxEmailLen    = 50
)
