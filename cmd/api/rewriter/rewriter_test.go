package rewriter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/prompts"
	"assist-chat/cmd/api/rewriter"
	"assist-chat/config"
	"assist-chat/models"
)

type fakeGenerator struct {
	out   string
	err   error
	calls []geminiclient.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req geminiclient.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.out, f.err
}

func newRewriter(gen geminiclient.Generator) *rewriter.Rewriter {
	cfg := config.Default().Pipeline
	cfg.InstitutionName = "Example Bank"
	return rewriter.New(gen, prompts.MustLoad(), cfg)
}

func TestRewriteBuildsPromptWithContext(t *testing.T) {
	gen := &fakeGenerator{out: "\n- Go to any branch.\n- Bring your work permit.\n"}
	out, err := newRewriter(gen).Rewrite(context.Background(), rewriter.Input{
		Query:      "How to open account?",
		AgentReply: "Visit a branch with your work permit.",
		Context: models.ConversationContext{
			Summary:        "User wants a new account.",
			KeyTopics:      []string{"account opening"},
			RecentMessages: []models.ChatMessage{{Role: models.RoleUser, Text: "hello"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "- Go to any branch.\n- Bring your work permit.", out)

	require.Len(t, gen.calls, 1)
	p := gen.calls[0].Prompt
	assert.Equal(t, geminiclient.StageRewrite, gen.calls[0].Stage)
	assert.Contains(t, p, "Example Bank")
	assert.Contains(t, p, "Summary: User wants a new account.")
	assert.Contains(t, p, "Key topics: account opening")
	assert.Contains(t, p, "user: hello")
	assert.Contains(t, p, "User query: How to open account?")
	assert.Contains(t, p, "Agent reply: Visit a branch with your work permit.")
}

func TestRewriteOmitsEmptyContextAndUsesSentinel(t *testing.T) {
	gen := &fakeGenerator{out: "Here is what you can do."}
	_, err := newRewriter(gen).Rewrite(context.Background(), rewriter.Input{
		Query:   "hello",
		Context: models.ConversationContext{KeyTopics: []string{}, Degraded: true},
	})
	require.NoError(t, err)

	p := gen.calls[0].Prompt
	assert.NotContains(t, p, "Conversation context:")
	assert.Contains(t, p, "Agent reply: [NO_AGENT_REPLY]")
}

func TestRewriteFailures(t *testing.T) {
	backendErr := errors.New("deadline exceeded")
	_, err := newRewriter(&fakeGenerator{err: backendErr}).Rewrite(context.Background(), rewriter.Input{Query: "q", AgentReply: "a"})
	assert.ErrorIs(t, err, backendErr)

	for _, out := range []string{"", "   \n", "[NO_AGENT_REPLY]"} {
		_, err = newRewriter(&fakeGenerator{out: out}).Rewrite(context.Background(), rewriter.Input{Query: "q", AgentReply: "a"})
		assert.ErrorIs(t, err, rewriter.ErrEmptyRewrite, "%q", out)
	}
}
