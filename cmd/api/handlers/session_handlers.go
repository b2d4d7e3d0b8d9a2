package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"assist-chat/cmd/api/dto"
	"assist-chat/cmd/api/session"
)

// ResetSessionHandler godoc
// @Summary      대화 세션 초기화
// @Description  세션 쿠키 두 개를 만료시킨다. 다음 턴은 새 세션 id 로 시작한다.
// @Tags         chat
// @Produce      json
// @Success      200  {object}  dto.MessageResponseDTO
// @Router       /session [delete]
func ResetSessionHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions.Reset(c.Writer)
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "session reset"})
	}
}
