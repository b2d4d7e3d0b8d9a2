package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"assist-chat/config"
	"assist-chat/repositories"
)

// ErrDisabled 는 mongo.uri 가 비어 있어 usage 로그 저장을 끈 상태를 뜻한다.
var ErrDisabled = errors.New("mongo disabled: mongo.uri is empty")

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init initializes the global Mongo client and database.
// Mongo is optional for this service; callers treat ErrDisabled as "run without usage logs".
func Init(ctx context.Context, cfg config.MongoConfig) error {
	if cfg.URI == "" {
		return ErrDisabled
	}
	var initErr error
	clientOnce.Do(func() {
		client, db, initErr = connect(ctx, cfg)
	})
	return initErr
}

// connect 는 연결, ping, 인덱스 생성을 수행한다. 도중에 실패하면 열린 연결을 닫고 nil 을 반환한다.
func connect(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, err
	}
	d := cl.Database(cfg.DBName)
	if err := cl.Ping(ctx, readpref.Primary()); err != nil {
		disconnect(cl)
		return nil, nil, err
	}
	if err := ensureIndexes(ctx, d); err != nil {
		disconnect(cl)
		return nil, nil, err
	}
	return cl, d, nil
}

func disconnect(cl *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cl.Disconnect(ctx)
}

func Client() *mongo.Client     { return client }
func Database() *mongo.Database { return db }

// Close disconnects the global client if it was initialized.
func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	col := d.Collection(repositories.LLMCallLogCollection)
	// requested_at desc
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "requested_at", Value: -1}},
		Options: options.Index().SetName("idx_requested_at_desc"),
	}); err != nil {
		return err
	}
	// (session_id, requested_at)
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "requested_at", Value: -1}},
		Options: options.Index().SetName("idx_session_requested_at"),
	}); err != nil {
		return err
	}
	// stage
	if _, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stage", Value: 1}},
		Options: options.Index().SetName("idx_stage"),
	}); err != nil {
		return err
	}
	return nil
}
