package assembler

import (
	"context"
	"errors"
	"strings"

	"assist-chat/cmd/api/dto"
	"assist-chat/cmd/api/resolver"
	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
)

const (
	ShapeMinimal  = "minimal"
	ShapeEnvelope = "envelope"
)

var ErrNoTextSlot = errors.New("envelope has no text response slot")

type Input struct {
	SessionID       string
	AgentReply      string
	RewrittenReply  string
	EnhancedQuery   *string
	Envelope        map[string]any
	Diagnostics     resolver.Diagnostics
	ContextDegraded bool
	RewriteFallback bool
}

type Assembler struct {
	shape string
}

func New(shape string) *Assembler {
	if shape != ShapeEnvelope {
		shape = ShapeMinimal
	}
	return &Assembler{shape: shape}
}

func (a *Assembler) Shape() string { return a.shape }

// Assemble 은 응답 본문을 만든다. envelope 형식에서 splice 가 실패하면 로그만 남기고 minimal 형식으로 응답한다.
func (a *Assembler) Assemble(ctx context.Context, in Input) any {
	if a.shape == ShapeEnvelope {
		env, err := Splice(in.Envelope, in.RewrittenReply)
		if err == nil {
			return env
		}
		logger.WarnWithFields("failed to splice rewritten reply into envelope; using minimal response", logger.Fields{
			"error":      err.Error(),
			"request_id": trace.RequestIDFromContext(ctx),
			"session_id": in.SessionID,
		})
	}
	return Minimal(in)
}

func Minimal(in Input) dto.TurnResponseDTO {
	return dto.TurnResponseDTO{
		AgentReply:     in.AgentReply,
		RewrittenReply: in.RewrittenReply,
		SessionID:      in.SessionID,
		EnhancedQuery:  in.EnhancedQuery,
		Diagnostics: &dto.DiagnosticsDTO{
			SessionID:       in.SessionID,
			IntentName:      in.Diagnostics.IntentName,
			Confidence:      in.Diagnostics.Confidence,
			LanguageCode:    in.Diagnostics.LanguageCode,
			ContextDegraded: in.ContextDegraded,
			RewriteFallback: in.RewriteFallback,
		},
	}
}

// Splice 는 agent reply 를 뽑은 text 슬롯(비어 있지 않은 줄이 있는 첫 슬롯)을 text 로 바꾼 envelope 사본을 반환한다.
// 그런 슬롯이 없으면 첫 text 슬롯을 쓴다. 원본은 바꾸지 않는다.
func Splice(env map[string]any, text string) (map[string]any, error) {
	qr, ok := env["queryResult"].(map[string]any)
	if !ok {
		return nil, ErrNoTextSlot
	}
	msgs, ok := qr["responseMessages"].([]any)
	if !ok {
		return nil, ErrNoTextSlot
	}

	slot, first := -1, -1
	for i, m := range msgs {
		lines, ok := textLines(m)
		if !ok {
			continue
		}
		if first < 0 {
			first = i
		}
		if hasContent(lines) {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = first
	}
	if slot < 0 {
		return nil, ErrNoTextSlot
	}

	msg := msgs[slot].(map[string]any)
	newText := copyMap(msg["text"].(map[string]any))
	newText["text"] = []any{text}
	newMsg := copyMap(msg)
	newMsg["text"] = newText
	newMsgs := make([]any, len(msgs))
	copy(newMsgs, msgs)
	newMsgs[slot] = newMsg
	newQR := copyMap(qr)
	newQR["responseMessages"] = newMsgs
	out := copyMap(env)
	out["queryResult"] = newQR
	return out, nil
}

func textLines(m any) ([]any, bool) {
	msg, ok := m.(map[string]any)
	if !ok {
		return nil, false
	}
	textField, ok := msg["text"].(map[string]any)
	if !ok {
		return nil, false
	}
	lines, ok := textField["text"].([]any)
	return lines, ok
}

func hasContent(lines []any) bool {
	for _, l := range lines {
		if s, ok := l.(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
