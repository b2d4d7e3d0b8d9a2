package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/config"
	"assist-chat/db"
)

func TestInitDisabledWithoutURI(t *testing.T) {
	err := db.Init(context.Background(), config.MongoConfig{})
	assert.ErrorIs(t, err, db.ErrDisabled)
	assert.Nil(t, db.Client())
}

func TestInitFailedPingLeavesNoClient(t *testing.T) {
	// 아무것도 듣지 않는 포트. server selection 이 빨리 끝나도록 timeout 을 줄인다.
	err := db.Init(context.Background(), config.MongoConfig{
		URI:    "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100&connectTimeoutMS=100",
		DBName: "assist_chat_test",
	})
	require.Error(t, err)
	assert.Nil(t, db.Client())
	assert.Nil(t, db.Database())
	assert.NoError(t, db.Close(context.Background()))
}
