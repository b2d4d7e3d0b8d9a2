package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"assist-chat/cmd/api/dto"
	"assist-chat/cmd/api/services"
	"assist-chat/cmd/api/session"
	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
	"assist-chat/models"
)

// DetectIntentHandler godoc
// @Summary      대화 턴 처리
// @Description  질의(및 선택적 이미지/PDF)와 대화 기록을 받아 intent backend 응답과 재작성된 응답을 반환한다.
// @Description  multipart/form-data 로 보내면 history 는 JSON 문자열이다. 세션 쿠키는 성공 응답마다 갱신된다.
// @Tags         chat
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        query    formData  string                false  "user query (required unless file is present)"
// @Param        file     formData  file                  false  "image/jpeg, image/png or application/pdf"
// @Param        history  formData  string                false  "JSON array of {role, message}"
// @Param        body     body      dto.TurnRequestDTO    false  "JSON turn request"
// @Success      200      {object}  dto.TurnResponseDTO
// @Failure      400      {object}  dto.ErrorResponseDTO  "missing_query, invalid_file_type, invalid_history, invalid_request"
// @Failure      413      {object}  dto.ErrorResponseDTO  "file_too_large"
// @Failure      500      {object}  dto.ErrorResponseDTO  "configuration_error"
// @Failure      503      {object}  dto.ErrorResponseDTO  "extraction_failed, intent_detection_failed"
// @Router       /detect-intent [post]
func DetectIntentHandler(svc *services.TurnService, sessions *session.Manager, maxUploadBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		sess := sessions.FromRequest(c.Request)
		trace.SetSessionID(ctx, sess.ID)

		in, status, code := bindTurn(c, maxUploadBytes)
		if code != "" {
			c.JSON(status, dto.ErrorResponseDTO{Error: code})
			return
		}
		in.SessionID = sess.ID

		body, turnErr := svc.Handle(ctx, in)
		if turnErr != nil {
			logger.WarnWithFields("turn failed", logger.Fields{
				"kind":       string(turnErr.Kind),
				"error":      turnErr.Error(),
				"request_id": trace.RequestIDFromContext(ctx),
				"session_id": sess.ID,
			})
			c.JSON(turnErr.StatusCode, dto.ErrorResponseDTO{Error: turnErr.ErrorCode})
			return
		}

		sessions.Write(c.Writer, sess)
		c.JSON(http.StatusOK, body)
	}
}

func bindTurn(c *gin.Context, maxUploadBytes int64) (services.TurnInput, int, string) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return bindMultipartTurn(c, maxUploadBytes)
	}

	var req dto.TurnRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		return services.TurnInput{}, http.StatusBadRequest, "invalid_request"
	}
	return services.TurnInput{Query: req.Query, History: toHistory(req.History)}, 0, ""
}

func bindMultipartTurn(c *gin.Context, maxUploadBytes int64) (services.TurnInput, int, string) {
	// 본문 전체 한도는 파일 한도에 폼 필드 여유분을 더한 값이다.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+(1<<20))

	in := services.TurnInput{Query: c.PostForm("query")}

	if raw := strings.TrimSpace(c.PostForm("history")); raw != "" {
		var hist []dto.HistoryMessageDTO
		if err := json.Unmarshal([]byte(raw), &hist); err != nil {
			return services.TurnInput{}, http.StatusBadRequest, "invalid_history"
		}
		in.History = toHistory(hist)
	}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return services.TurnInput{}, http.StatusRequestEntityTooLarge, "file_too_large"
		}
		return services.TurnInput{}, http.StatusBadRequest, "invalid_request"
	default:
		if fh.Size > maxUploadBytes {
			return services.TurnInput{}, http.StatusRequestEntityTooLarge, "file_too_large"
		}
		f, err := fh.Open()
		if err != nil {
			return services.TurnInput{}, http.StatusBadRequest, "invalid_request"
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		if err != nil {
			return services.TurnInput{}, http.StatusBadRequest, "invalid_request"
		}
		if int64(len(data)) > maxUploadBytes {
			return services.TurnInput{}, http.StatusRequestEntityTooLarge, "file_too_large"
		}
		in.File = &services.UploadedFile{Name: fh.Filename, Data: data}
	}
	return in, 0, ""
}

// toHistory 는 알 수 없는 role 이나 빈 메시지를 버린다.
func toHistory(in []dto.HistoryMessageDTO) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(in))
	for _, m := range in {
		role := normalizeRole(m.Role)
		body := m.Body()
		if role == "" || strings.TrimSpace(body) == "" {
			continue
		}
		out = append(out, models.ChatMessage{Role: role, Text: body})
	}
	return out
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user", "human":
		return models.RoleUser
	case "assistant", "bot", "agent", "model":
		return models.RoleAssistant
	default:
		return ""
	}
}
