package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"assist-chat/models"
)

const LLMCallLogCollection = "llm_call_logs"

type LLMCallLogRepository struct {
	col *mongo.Collection
}

func NewLLMCallLogRepository(db *mongo.Database) *LLMCallLogRepository {
	return &LLMCallLogRepository{col: db.Collection(LLMCallLogCollection)}
}

func (r *LLMCallLogRepository) Insert(ctx context.Context, log models.LLMCallLog) error {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now()
	}
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now()
	}
	_, err := r.col.InsertOne(ctx, log)
	return err
}
