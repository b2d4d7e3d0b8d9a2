package rewriter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/prompts"
	"assist-chat/config"
	"assist-chat/models"
)

var ErrEmptyRewrite = errors.New("rewrite returned no usable text")

type Input struct {
	// Query 는 enhancement 이전의 사용자 질의다.
	Query      string
	Context    models.ConversationContext
	AgentReply string
}

type Rewriter struct {
	gen             geminiclient.Generator
	policy          *prompts.Policy
	institutionName string
	locale          string
}

func New(gen geminiclient.Generator, policy *prompts.Policy, cfg config.PipelineConfig) *Rewriter {
	return &Rewriter{
		gen:             gen,
		policy:          policy,
		institutionName: cfg.InstitutionName,
		locale:          cfg.Locale,
	}
}

// Rewrite 는 생성형 호출 한 번으로 최종 응답을 만든다.
// 실패 시 에러만 반환하며, agent reply 로 되돌리는 것은 호출자 몫이다.
func (r *Rewriter) Rewrite(ctx context.Context, in Input) (string, error) {
	prompt, err := r.policy.RenderRewrite(prompts.RewriteData{
		Query:           in.Query,
		AgentReply:      in.AgentReply,
		Context:         contextBlock(in.Context),
		InstitutionName: r.institutionName,
		Locale:          r.locale,
	})
	if err != nil {
		return "", err
	}

	out, err := r.gen.Generate(ctx, geminiclient.Request{Stage: geminiclient.StageRewrite, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" || out == r.policy.NoReplySentinel {
		return "", ErrEmptyRewrite
	}
	return out, nil
}

func contextBlock(c models.ConversationContext) *prompts.ContextBlock {
	if !c.HasContent() {
		return nil
	}
	recent := make([]prompts.Turn, 0, len(c.RecentMessages))
	for _, m := range c.RecentMessages {
		recent = append(recent, prompts.Turn{Role: m.Role, Text: m.Text})
	}
	return &prompts.ContextBlock{
		Summary:         c.Summary,
		KeyTopics:       c.KeyTopics,
		UserPreferences: c.UserPreferences,
		RecentMessages:  recent,
	}
}
