package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"assist-chat/cmd/api/assembler"
	"assist-chat/cmd/api/clients/dialogflowclient"
	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/enhancer"
	"assist-chat/cmd/api/extractor"
	"assist-chat/cmd/api/handlers"
	"assist-chat/cmd/api/prompts"
	"assist-chat/cmd/api/quota"
	"assist-chat/cmd/api/resolver"
	"assist-chat/cmd/api/rewriter"
	"assist-chat/cmd/api/router"
	"assist-chat/cmd/api/services"
	"assist-chat/cmd/api/session"
	"assist-chat/cmd/internal/logger"
	"assist-chat/config"
	"assist-chat/db"
	"assist-chat/repositories"
	_ "assist-chat/docs"
)

// @title           Assist Chat API
// @version         1.0
// @description     Conversational banking assistance for migrant workers: intent detection with context enhancement and response rewriting.
// @BasePath        /api/v1
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)

	ctx := context.Background()

	// intent backend 식별자가 비어 있어도 프로세스는 뜬다. 매 요청마다 configuration_error 로 응답한다.
	if err := cfg.Dialogflow.Validate(); err != nil {
		logger.WarnWithFields("dialogflow configuration incomplete", logger.Fields{"error": err.Error()})
	}

	policy := prompts.MustLoad()

	var recorder geminiclient.UsageRecorder
	var usagePing handlers.Pinger
	switch err := db.Init(ctx, cfg.Mongo); {
	case errors.Is(err, db.ErrDisabled):
		logger.Log.Info("mongo disabled; generative usage will not be recorded")
	case err != nil:
		log.Fatal("failed to initialize MongoDB:", err)
	default:
		recorder = repositories.NewLLMCallLogRepository(db.Database())
		usagePing = func(ctx context.Context) error { return db.Client().Ping(ctx, readpref.Primary()) }
	}

	var gen geminiclient.Generator
	client, err := geminiclient.New(ctx, cfg.Gemini,
		geminiclient.WithLimiter(quota.NewLimiterFromConfig(cfg.Quota)),
		geminiclient.WithRecorder(recorder),
		geminiclient.WithPolicyVersion(policy.Version),
	)
	switch {
	case errors.Is(err, geminiclient.ErrNotConfigured):
		logger.Log.Warn("GEMINI_API_KEY not set; context enhancement and rewrite will fall back")
		gen = geminiclient.Unconfigured{}
	case err != nil:
		log.Fatal("failed to initialize gemini client:", err)
	default:
		gen = client
	}

	turns := services.NewTurnService(services.TurnDeps{
		Extractor: extractor.New(extractor.NewGeminiAnalyzer(gen, policy)),
		Enhancer:  enhancer.New(gen, policy, cfg.Pipeline),
		Resolver:  resolver.New(dialogflowclient.New(cfg.Dialogflow)),
		Rewriter:  rewriter.New(gen, policy, cfg.Pipeline),
		Assembler: assembler.New(cfg.Pipeline.ResponseShape),
	}, cfg)

	handler := router.Handler(router.Deps{
		Turns:          turns,
		Sessions:       session.NewManager(cfg.Session, cfg.Server.CookieSecure),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		UsageLog:       usagePing,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.InfoWithFields("server starting", logger.Fields{
			"port":           cfg.Server.Port,
			"response_shape": cfg.Pipeline.ResponseShape,
			"policy_version": policy.Version,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("graceful shutdown failed: %v", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		logger.Log.Errorf("mongo disconnect failed: %v", err)
	}
	logger.Log.Info("server stopped")
}
