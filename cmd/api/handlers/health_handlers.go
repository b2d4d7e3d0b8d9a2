package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"assist-chat/cmd/api/dto"
)

// Pinger 는 선택적 의존성의 상태 확인 함수다. nil 이면 확인하지 않는다.
type Pinger func(ctx context.Context) error

// HealthHandler 는 항상 200 을 반환한다. usage 로그 저장소 상태는 usage_log 필드로만 알린다.
func HealthHandler(usageLog Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := dto.HealthResponseDTO{Status: "ok"}
		if usageLog != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := usageLog(ctx); err != nil {
				resp.UsageLog = "down"
			} else {
				resp.UsageLog = "up"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
