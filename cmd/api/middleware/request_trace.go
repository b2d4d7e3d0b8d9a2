package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
)

const (
	headerRequestID = "X-Request-Id"
	headerSpanID    = "X-Span-Id"
	maxBodyLog      = 1024
)

// RequestTrace는 모든 inbound HTTP 요청에 대해 Request ID와 Span ID를 보장하고,
// 이를 컨텍스트/헤더에 저장한 뒤 완료 로그에 포함시킨다.
// omitBodyPaths 에 있는 경로(대화 내용이 담긴 요청)는 바디 스니펫을 남기지 않는다.
func RequestTrace(omitBodyPaths ...string) gin.HandlerFunc {
	omit := make(map[string]struct{}, len(omitBodyPaths))
	for _, p := range omitBodyPaths {
		omit[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		requestID := req.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = trace.GenerateID()
		}

		// inbound 로그는 span_id=0, 백엔드 호출(파일 분석, context, intent, rewrite)은 1,2,3,...
		ctxWithTrace := trace.WithRequestAndSpan(req.Context(), requestID, 0)
		c.Request = req.WithContext(ctxWithTrace)
		req = c.Request

		currentSpan := trace.CurrentSpanID(ctxWithTrace)
		c.Request.Header.Set(headerRequestID, requestID)
		c.Request.Header.Set(headerSpanID, currentSpan)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Writer.Header().Set(headerSpanID, currentSpan)

		// JSON 바디만 스니펫으로 남긴다. multipart 업로드(사용자 파일)는 읽지 않는다.
		var bodySnippet string
		_, omitted := omit[req.URL.Path]
		if !omitted && req.Body != nil && req.ContentLength != 0 && hasBody(req.Method) &&
			strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
			if bodyBytes, err := io.ReadAll(req.Body); err == nil {
				if len(bodyBytes) > maxBodyLog {
					bodySnippet = string(bodyBytes[:maxBodyLog])
				} else {
					bodySnippet = string(bodyBytes)
				}
				// gin 핸들러에서 다시 읽을 수 있도록 Body 를 복원한다.
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			}
		}

		c.Next()

		fields := logger.Fields{
			"method":     req.Method,
			"path":       req.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": requestID,
			"span_id":    trace.CurrentSpanID(c.Request.Context()),
			"session_id": trace.SessionIDFromContext(c.Request.Context()),
		}
		if bodySnippet != "" {
			fields["body"] = bodySnippet
		}
		logger.InfoWithFields("completed request", fields)
	}
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
