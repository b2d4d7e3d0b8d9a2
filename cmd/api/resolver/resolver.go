package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrIntentDetection = errors.New("intent detection failed")

// Backend 는 intent detection 백엔드다. dialogflowclient.Client 가 구현한다.
type Backend interface {
	DetectIntent(ctx context.Context, sessionID, text string) (map[string]any, error)
}

// Diagnostics 는 감사 화면용 메타데이터다. 값이 없으면 zero value 로 남는다.
type Diagnostics struct {
	SessionID    string  `json:"sessionId"`
	IntentName   string  `json:"intentName,omitempty"`
	Confidence   float64 `json:"confidence"`
	LanguageCode string  `json:"languageCode,omitempty"`
}

// IntentReply 는 백엔드 응답 envelope 와 거기서 읽어낸 첫 텍스트 응답이다.
type IntentReply struct {
	Envelope    map[string]any
	AgentReply  string
	Diagnostics Diagnostics
}

type Resolver struct {
	backend Backend
}

func New(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve 는 text 를 한 번 제출한다. 실패는 ErrIntentDetection 으로 감싸 반환하고 재시도하지 않는다.
// 텍스트 응답이 하나도 없으면 AgentReply 는 빈 문자열이며 에러가 아니다.
func (r *Resolver) Resolve(ctx context.Context, sessionID, text string) (IntentReply, error) {
	env, err := r.backend.DetectIntent(ctx, sessionID, text)
	if err != nil {
		return IntentReply{}, fmt.Errorf("%w: %w", ErrIntentDetection, err)
	}
	diag := ExtractDiagnostics(env)
	diag.SessionID = sessionID
	return IntentReply{
		Envelope:    env,
		AgentReply:  FirstTextReply(env),
		Diagnostics: diag,
	}, nil
}

// FirstTextReply 는 queryResult.responseMessages[*].text.text[*] 중 첫 번째 비어 있지 않은 문자열을 반환한다.
func FirstTextReply(env map[string]any) string {
	for _, m := range responseMessages(env) {
		msg, _ := m.(map[string]any)
		text, _ := msg["text"].(map[string]any)
		lines, _ := text["text"].([]any)
		for _, l := range lines {
			if s, ok := l.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

func responseMessages(env map[string]any) []any {
	qr, _ := env["queryResult"].(map[string]any)
	msgs, _ := qr["responseMessages"].([]any)
	return msgs
}

func ExtractDiagnostics(env map[string]any) Diagnostics {
	var d Diagnostics
	qr, _ := env["queryResult"].(map[string]any)
	if qr == nil {
		return d
	}
	d.LanguageCode, _ = qr["languageCode"].(string)

	match, _ := qr["match"].(map[string]any)
	if match != nil {
		d.Confidence, _ = match["confidence"].(float64)
		if in, ok := match["intent"].(map[string]any); ok {
			d.IntentName, _ = in["displayName"].(string)
		}
	}
	if in, ok := qr["intent"].(map[string]any); ok && d.IntentName == "" {
		d.IntentName, _ = in["displayName"].(string)
	}
	if d.Confidence == 0 {
		d.Confidence, _ = qr["intentDetectionConfidence"].(float64)
	}
	return d
}
