package domain

import "time"

// BatchForm is a user-owned batch form entry.
type BatchForm struct {
	BatchFormID string    `json:"batch_form_id" dynamodbav:"batch_form_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Title       string    `json:"title" dynamodbav:"title"`
	Description string    `json:"description" dynamodbav:"description"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type CreateBatchFormRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"required"`
}

type UpdateBatchFormRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=100"`
	Description *string `json:"description"`
}
