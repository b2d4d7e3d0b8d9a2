// Package enhancer 는 대화 기록에서 요약, 주제, 사용자 선호와 enhanced query 를 만든다.
//
// 생성형 호출은 턴마다 한 번이며 재시도하지 않는다. 호출 실패나 구조화 응답 해석 실패는
// 에러로 올리지 않고 Fallback 컨텍스트로 대체한다.
package enhancer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/jsonextract"
	"assist-chat/cmd/api/prompts"
	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
	"assist-chat/config"
	"assist-chat/models"
)

const defaultRecentMessages = 3

type Enhancer struct {
	gen    geminiclient.Generator
	policy *prompts.Policy

	language       string
	locale         string
	recentMessages int
}

func New(gen geminiclient.Generator, policy *prompts.Policy, cfg config.PipelineConfig) *Enhancer {
	n := cfg.RecentMessages
	if n <= 0 {
		n = defaultRecentMessages
	}
	return &Enhancer{
		gen:            gen,
		policy:         policy,
		language:       cfg.CanonicalLanguage,
		locale:         cfg.Locale,
		recentMessages: n,
	}
}

// rawContext 는 모델이 돌려주는 JSON 이다. 선호 값은 문자열이 아닐 수도 있어 any 로 받는다.
type rawContext struct {
	Summary         string         `json:"summary"`
	KeyTopics       []string       `json:"keyTopics"`
	UserPreferences map[string]any `json:"userPreferences"`
	EnhancedQuery   string         `json:"enhancedQuery"`
}

// Enhance 는 항상 사용할 수 있는 컨텍스트를 반환한다.
func (e *Enhancer) Enhance(ctx context.Context, query string, history []models.ChatMessage) models.ConversationContext {
	if len(history) == 0 {
		return e.translateOnly(ctx, query)
	}

	previous := previousAssistant(history)
	prompt, err := e.policy.RenderContext(prompts.ContextData{
		Query:             query,
		Language:          e.language,
		Locale:            e.locale,
		Transcript:        toTurns(history),
		PreviousAssistant: previous,
	})
	if err != nil {
		e.logDegraded(ctx, "render", err)
		return Fallback(history, e.recentMessages)
	}

	raw, err := e.gen.Generate(ctx, geminiclient.Request{Stage: geminiclient.StageContext, Prompt: prompt, JSON: true})
	if err != nil {
		e.logDegraded(ctx, "generate", err)
		return Fallback(history, e.recentMessages)
	}

	parsed, err := jsonextract.Decode[rawContext](raw)
	if err != nil {
		e.logDegraded(ctx, "parse", err)
		return Fallback(history, e.recentMessages)
	}

	out := models.ConversationContext{
		Summary:         strings.TrimSpace(parsed.Summary),
		KeyTopics:       cleanTopics(parsed.KeyTopics),
		UserPreferences: userOnlyPreferences(parsed.UserPreferences, query, history),
		RecentMessages:  lastN(history, e.recentMessages),
	}
	if eq := strings.TrimSpace(parsed.EnhancedQuery); eq != "" {
		if previous != "" && sameText(eq, previous) {
			logger.WarnWithFields("enhanced query echoed previous assistant message; dropped", logger.Fields{
				"request_id": trace.RequestIDFromContext(ctx),
				"session_id": trace.SessionIDFromContext(ctx),
			})
		} else {
			out.EnhancedQuery = &eq
		}
	}
	return out
}

// translateOnly 는 첫 턴 처리다. enhancedQuery 외의 필드는 비워 둔다.
func (e *Enhancer) translateOnly(ctx context.Context, query string) models.ConversationContext {
	prompt, err := e.policy.RenderTranslate(prompts.TranslateData{Query: query, Language: e.language})
	if err != nil {
		e.logDegraded(ctx, "render", err)
		return Fallback(nil, e.recentMessages)
	}
	raw, err := e.gen.Generate(ctx, geminiclient.Request{Stage: geminiclient.StageTranslate, Prompt: prompt})
	if err != nil {
		e.logDegraded(ctx, "generate", err)
		return Fallback(nil, e.recentMessages)
	}

	out := models.ConversationContext{KeyTopics: []string{}}
	if t := strings.Trim(strings.TrimSpace(raw), `"`); t != "" {
		out.EnhancedQuery = &t
	}
	return out
}

// Fallback 은 생성형 호출이 실패했을 때 쓰는 축소 컨텍스트다.
func Fallback(history []models.ChatMessage, recent int) models.ConversationContext {
	if recent <= 0 {
		recent = defaultRecentMessages
	}
	return models.ConversationContext{
		Summary:        "",
		KeyTopics:      []string{},
		RecentMessages: lastN(history, recent),
		Degraded:       true,
	}
}

func (e *Enhancer) logDegraded(ctx context.Context, step string, err error) {
	fields := logger.Fields{
		"step":           step,
		"error":          err.Error(),
		"policy_version": e.policy.Version,
		"request_id":     trace.RequestIDFromContext(ctx),
		"session_id":     trace.SessionIDFromContext(ctx),
	}
	var pf *jsonextract.ParseFailure
	if errors.As(err, &pf) {
		fields["parse_reason"] = string(pf.Reason)
	}
	logger.WarnWithFields("context enhancement failed; using fallback context", fields)
}

func lastN(history []models.ChatMessage, n int) []models.ChatMessage {
	if len(history) <= n {
		out := make([]models.ChatMessage, len(history))
		copy(out, history)
		return out
	}
	out := make([]models.ChatMessage, n)
	copy(out, history[len(history)-n:])
	return out
}

func toTurns(history []models.ChatMessage) []prompts.Turn {
	turns := make([]prompts.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, prompts.Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}

func previousAssistant(history []models.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleAssistant {
			return history[i].Text
		}
	}
	return ""
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// userOnlyPreferences 는 assistant 발화에만 등장하는 값을 버린다.
// 등장 여부는 토큰 경계로 판단한다. ("2500" 은 "25000" 에 등장하지 않는다.)
// 어느 쪽에도 등장하지 않는 값(모델의 요약 표현)은 유지한다. 현재 질의도 사용자 발화로 본다.
func userOnlyPreferences(prefs map[string]any, query string, history []models.ChatMessage) map[string]string {
	if len(prefs) == 0 {
		return nil
	}
	users := [][]string{tokens(query)}
	var assistants [][]string
	for _, m := range history {
		if m.Role == models.RoleAssistant {
			assistants = append(assistants, tokens(m.Text))
		} else {
			users = append(users, tokens(m.Text))
		}
	}

	out := make(map[string]string, len(prefs))
	for k, v := range prefs {
		if v == nil {
			continue
		}
		val := strings.TrimSpace(fmt.Sprint(v))
		if val == "" {
			continue
		}
		tv := tokens(val)
		if !mentions(users, tv) && mentions(assistants, tv) {
			continue
		}
		out[k] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// mentions 는 needle 토큰열이 어느 발화에 연속으로 등장하는지 본다.
func mentions(texts [][]string, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
	for _, hay := range texts {
		for i := 0; i+len(needle) <= len(hay); i++ {
			if slices.Equal(hay[i:i+len(needle)], needle) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameText(a, b string) bool {
	return normalize(a) == normalize(b)
}
