package resolver_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/cmd/api/clients/dialogflowclient"
	"assist-chat/cmd/api/resolver"
)

type fakeBackend struct {
	env       map[string]any
	err       error
	sessionID string
	text      string
	calls     int
}

func (f *fakeBackend) DetectIntent(_ context.Context, sessionID, text string) (map[string]any, error) {
	f.calls++
	f.sessionID, f.text = sessionID, text
	return f.env, f.err
}

func envelope(t *testing.T, raw string) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

const sampleEnvelope = `{
  "responseId": "r-1",
  "queryResult": {
    "text": "open account",
    "languageCode": "en",
    "responseMessages": [
      {"payload": {"richContent": []}},
      {"text": {"text": ["", "  "]}},
      {"text": {"text": ["You can open an account at any branch.", "Second line"]}}
    ],
    "match": {"confidence": 0.87, "intent": {"displayName": "account.open"}}
  }
}`

func TestResolveExtractsFirstTextReply(t *testing.T) {
	be := &fakeBackend{env: envelope(t, sampleEnvelope)}
	got, err := resolver.New(be).Resolve(context.Background(), "sess-1", "open account")
	require.NoError(t, err)

	assert.Equal(t, 1, be.calls)
	assert.Equal(t, "sess-1", be.sessionID)
	assert.Equal(t, "open account", be.text)

	assert.Equal(t, "You can open an account at any branch.", got.AgentReply)
	assert.Equal(t, "sess-1", got.Diagnostics.SessionID)
	assert.Equal(t, "account.open", got.Diagnostics.IntentName)
	assert.InDelta(t, 0.87, got.Diagnostics.Confidence, 1e-9)
	assert.Equal(t, "en", got.Diagnostics.LanguageCode)
}

func TestResolveNoTextIsNotAnError(t *testing.T) {
	be := &fakeBackend{env: envelope(t, `{"queryResult":{"responseMessages":[{"payload":{}}]}}`)}
	got, err := resolver.New(be).Resolve(context.Background(), "s", "q")
	require.NoError(t, err)
	assert.Equal(t, "", got.AgentReply)
}

func TestResolveWrapsBackendError(t *testing.T) {
	be := &fakeBackend{err: &dialogflowclient.HTTPError{StatusCode: 429, Body: "quota"}}
	_, err := resolver.New(be).Resolve(context.Background(), "s", "q")

	assert.ErrorIs(t, err, resolver.ErrIntentDetection)
	var httpErr *dialogflowclient.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 429, httpErr.StatusCode)
}

func TestFirstTextReplyOnMalformedEnvelopes(t *testing.T) {
	assert.Equal(t, "", resolver.FirstTextReply(nil))
	assert.Equal(t, "", resolver.FirstTextReply(map[string]any{"queryResult": "nope"}))
	assert.Equal(t, "", resolver.FirstTextReply(envelope(t, `{"queryResult":{"responseMessages":[{"text":{"text":[1,2]}}]}}`)))
}
