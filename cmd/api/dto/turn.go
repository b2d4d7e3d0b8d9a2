package dto

import "strings"

// HistoryMessageDTO는 클라이언트 로컬 저장소에 쌓인 대화 한 줄이다.
// message 가 표준 필드이고, 이전 클라이언트의 content/text 도 받는다.
type HistoryMessageDTO struct {
	Role    string `json:"role" example:"assistant"`
	Message string `json:"message" example:"How much do you want to save?"`
	Content string `json:"content,omitempty" swaggerignore:"true"`
	Text    string `json:"text,omitempty" swaggerignore:"true"`
}

// Body는 비어 있지 않은 첫 본문 필드를 반환한다.
func (m HistoryMessageDTO) Body() string {
	for _, s := range []string{m.Message, m.Content, m.Text} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// TurnRequestDTO는 JSON 본문으로 턴을 보낼 때의 스키마다. 파일 첨부는 multipart 로만 가능하다.
type TurnRequestDTO struct {
	Query   string              `json:"query" example:"idk"`
	History []HistoryMessageDTO `json:"history"`
}

// DiagnosticsDTO는 감사 화면에 보여줄 백엔드 메타데이터다.
type DiagnosticsDTO struct {
	SessionID       string  `json:"sessionId" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	IntentName      string  `json:"intentName,omitempty" example:"savings.amount"`
	Confidence      float64 `json:"confidence" example:"0.82"`
	LanguageCode    string  `json:"languageCode,omitempty" example:"en"`
	ContextDegraded bool    `json:"contextDegraded"`
	RewriteFallback bool    `json:"rewriteFallback"`
}

// TurnResponseDTO는 기본(minimal) 응답 형식이다.
type TurnResponseDTO struct {
	AgentReply     string          `json:"agentReply" example:"How much would you like to save each month?"`
	RewrittenReply string          `json:"rewrittenReply" example:"That's okay! How much can you save each month?"`
	SessionID      string          `json:"sessionId" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	EnhancedQuery  *string         `json:"enhancedQuery,omitempty" example:"I don't know how much I want to save."`
	Diagnostics    *DiagnosticsDTO `json:"diagnostics,omitempty"`
}
