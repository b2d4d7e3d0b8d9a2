package dto

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"intent_detection_failed"`
}

// MessageResponseDTO는 단순 메시지 응답 형식을 통일하기 위한 DTO이다.
type MessageResponseDTO struct {
	Message string `json:"message" example:"session reset"`
}

// HealthResponseDTO는 헬스 체크 응답이다.
type HealthResponseDTO struct {
	Status   string `json:"status" example:"ok"`
	UsageLog string `json:"usage_log,omitempty" example:"up"`
}
