package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LLMCallLog stores generative backend usage (system monitoring purpose).
// Prompt and reply text are never stored.
// Collection: llm_call_logs
type LLMCallLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Stage        string             `bson:"stage" json:"stage"`
	RequestID    string             `bson:"request_id,omitempty" json:"request_id,omitempty"`
	SessionID    string             `bson:"session_id,omitempty" json:"session_id,omitempty"`
	PolicyVer    string             `bson:"policy_version,omitempty" json:"policy_version,omitempty"`
	ModelName    string             `bson:"model_name" json:"model_name"`
	ModelVersion string             `bson:"model_version,omitempty" json:"model_version,omitempty"`
	InputTokens  int64              `bson:"input_tokens" json:"input_tokens"`
	OutputTokens int64              `bson:"output_tokens" json:"output_tokens"`
	TotalTokens  int64              `bson:"total_tokens" json:"total_tokens"`
	DurationMs   int64              `bson:"duration_ms" json:"duration_ms"`
	Success      bool               `bson:"success" json:"success"`
	ErrorMessage *string            `bson:"error_message,omitempty" json:"error_message,omitempty"`
	RequestedAt  time.Time          `bson:"requested_at" json:"requested_at"`
	CompletedAt  time.Time          `bson:"completed_at" json:"completed_at"`
}
