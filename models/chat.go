package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 는 클라이언트가 보내온 대화 기록 한 줄이다. 서버는 저장하지 않는다.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ConversationContext 는 매 턴 history 로부터 다시 계산되는 파생 컨텍스트다.
type ConversationContext struct {
	Summary         string            `json:"summary"`
	KeyTopics       []string          `json:"keyTopics"`
	UserPreferences map[string]string `json:"userPreferences,omitempty"`
	EnhancedQuery   *string           `json:"enhancedQuery,omitempty"`
	RecentMessages  []ChatMessage     `json:"recentMessages,omitempty"`
	// Degraded 는 생성형 호출 실패로 fallback 컨텍스트가 사용되었음을 뜻한다.
	Degraded bool `json:"-"`
}

// Enhanced 는 비어 있지 않은 enhanced query 를 반환한다.
func (c ConversationContext) Enhanced() (string, bool) {
	if c.EnhancedQuery == nil || *c.EnhancedQuery == "" {
		return "", false
	}
	return *c.EnhancedQuery, true
}

// HasContent 는 rewrite 프롬프트에 실을 컨텍스트 블록이 있는지 보고한다.
func (c ConversationContext) HasContent() bool {
	return c.Summary != "" || len(c.KeyTopics) > 0 || len(c.UserPreferences) > 0 || len(c.RecentMessages) > 0
}
