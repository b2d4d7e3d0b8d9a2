package services

import (
	"context"
	"time"

	"assist-chat/cmd/api/assembler"
	"assist-chat/cmd/api/extractor"
	"assist-chat/cmd/api/normalizer"
	"assist-chat/cmd/api/resolver"
	"assist-chat/cmd/api/rewriter"
	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
	"assist-chat/config"
	"assist-chat/models"
)

type FileExtractor interface {
	Extract(ctx context.Context, f extractor.File) (string, error)
}

type ContextEnhancer interface {
	Enhance(ctx context.Context, query string, history []models.ChatMessage) models.ConversationContext
}

type IntentResolver interface {
	Resolve(ctx context.Context, sessionID, text string) (resolver.IntentReply, error)
}

type ResponseRewriter interface {
	Rewrite(ctx context.Context, in rewriter.Input) (string, error)
}

type TurnDeps struct {
	Extractor FileExtractor
	Enhancer  ContextEnhancer
	Resolver  IntentResolver
	Rewriter  ResponseRewriter
	Assembler *assembler.Assembler
}

type TurnService struct {
	deps             TurnDeps
	dialogflow       config.DialogflowConfig
	useEnhancedQuery bool
}

type UploadedFile struct {
	Name string
	Data []byte
}

type TurnInput struct {
	SessionID string
	Query     string
	File      *UploadedFile
	History   []models.ChatMessage
}

func NewTurnService(deps TurnDeps, cfg config.AppConfig) *TurnService {
	if deps.Assembler == nil {
		deps.Assembler = assembler.New(cfg.Pipeline.ResponseShape)
	}
	return &TurnService{
		deps:             deps,
		dialogflow:       cfg.Dialogflow,
		useEnhancedQuery: cfg.Pipeline.UseEnhancedQueryForIntentDetection,
	}
}

// Handle 은 한 턴을 순서대로 처리한다.
// 설정/입력 오류는 어떤 백엔드 호출보다 먼저 반환된다. 재시도는 없다.
func (s *TurnService) Handle(ctx context.Context, in TurnInput) (any, *TurnError) {
	start := time.Now()
	if err := s.dialogflow.Validate(); err != nil {
		return nil, configurationError(err)
	}
	if in.Query == "" && in.File == nil {
		return nil, missingQueryError(normalizer.ErrMissingQuery)
	}

	var file *extractor.File
	if in.File != nil {
		mimeType, err := extractor.Sniff(in.File.Data)
		if err != nil {
			return nil, invalidFileTypeError(err)
		}
		file = &extractor.File{Name: in.File.Name, Data: in.File.Data, MIMEType: mimeType}
	}

	var fragment string
	if file != nil {
		var err error
		fragment, err = s.deps.Extractor.Extract(ctx, *file)
		if err != nil {
			return nil, extractionError(err)
		}
	}

	query, err := normalizer.Normalize(in.Query, fragment)
	if err != nil {
		return nil, missingQueryError(err)
	}

	convCtx := s.deps.Enhancer.Enhance(ctx, query, in.History)

	intentText := query
	if eq, ok := convCtx.Enhanced(); ok && s.useEnhancedQuery {
		intentText = eq
	}

	reply, err := s.deps.Resolver.Resolve(ctx, in.SessionID, intentText)
	if err != nil {
		return nil, intentDetectionError(err)
	}

	rewritten, err := s.deps.Rewriter.Rewrite(ctx, rewriter.Input{
		Query:      query,
		Context:    convCtx,
		AgentReply: reply.AgentReply,
	})
	rewriteFallback := false
	if err != nil {
		logger.WarnWithFields("rewrite failed; returning agent reply", logger.Fields{
			"error":      err.Error(),
			"request_id": trace.RequestIDFromContext(ctx),
			"session_id": in.SessionID,
		})
		rewritten = reply.AgentReply
		rewriteFallback = true
	}

	body := s.deps.Assembler.Assemble(ctx, assembler.Input{
		SessionID:       in.SessionID,
		AgentReply:      reply.AgentReply,
		RewrittenReply:  rewritten,
		EnhancedQuery:   convCtx.EnhancedQuery,
		Envelope:        reply.Envelope,
		Diagnostics:     reply.Diagnostics,
		ContextDegraded: convCtx.Degraded,
		RewriteFallback: rewriteFallback,
	})

	logger.InfoWithFields("turn completed", logger.Fields{
		"request_id":        trace.RequestIDFromContext(ctx),
		"session_id":        in.SessionID,
		"has_file":          file != nil,
		"history_len":       len(in.History),
		"used_enhanced":     intentText != query,
		"context_degraded":  convCtx.Degraded,
		"rewrite_fallback":  rewriteFallback,
		"intent_name":       reply.Diagnostics.IntentName,
		"intent_confidence": reply.Diagnostics.Confidence,
		"duration":          time.Since(start).String(),
	})
	return body, nil
}
