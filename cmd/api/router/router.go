package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"assist-chat/cmd/api/handlers"
	"assist-chat/cmd/api/middleware"
	"assist-chat/cmd/api/services"
	"assist-chat/cmd/api/session"
	_ "assist-chat/docs"
)

// PathDetectIntent 는 대화 턴 엔드포인트다. 요청 바디는 로그에 남기지 않는다.
const PathDetectIntent = "/api/v1/detect-intent"

type Deps struct {
	Turns          *services.TurnService
	Sessions       *session.Manager
	MaxUploadBytes int64
	CORSOrigins    []string
	// UsageLog 가 nil 이면 health 응답에 usage_log 를 싣지 않는다.
	UsageLog handlers.Pinger
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(PathDetectIntent))

	r.GET("/health", handlers.HealthHandler(d.UsageLog))

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.POST("/detect-intent", handlers.DetectIntentHandler(d.Turns, d.Sessions, d.MaxUploadBytes))
		api.DELETE("/session", handlers.ResetSessionHandler(d.Sessions))
	}

	return r
}

// Handler 는 브라우저 채팅 UI 가 쿠키와 함께 호출할 수 있도록 CORS 로 감싼 핸들러를 반환한다.
func Handler(d Deps) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Span-Id"},
		AllowCredentials: true,
	})
	return c.Handler(New(d))
}
