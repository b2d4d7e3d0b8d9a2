package geminiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"assist-chat/cmd/api/httpclient"
	"assist-chat/cmd/api/quota"
	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
	"assist-chat/config"
	"assist-chat/models"
)

// 생성형 호출 단계 이름. llm_call_logs.stage 에 그대로 기록된다.
const (
	StageFileAnalysis = "file_analysis"
	StageTranslate    = "translate"
	StageContext      = "context"
	StageRewrite      = "rewrite"
)

// ErrNotConfigured 는 API key 없이 생성형 호출을 시도했을 때 반환된다.
var ErrNotConfigured = errors.New("gemini api key is not configured")

// FilePart 는 멀티모달 호출에 함께 보낼 사용자 파일이다.
type FilePart struct {
	Data     []byte
	MIMEType string
}

// Request 는 단일 생성형 호출 입력이다.
type Request struct {
	Stage  string
	Prompt string
	File   *FilePart
	// JSON 이 true 이면 application/json 응답을 요청한다. 그래도 결과는 jsonextract 로 읽어야 한다.
	JSON bool
}

// Generator 는 파이프라인 단계들이 의존하는 생성형 백엔드 추상화다.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Unconfigured 는 API key 가 없을 때 쓰는 Generator 다. 모든 호출이 ErrNotConfigured 로 실패하므로
// context enhancement 와 rewrite 는 fallback 경로로, 파일 분석은 extraction 실패로 처리된다.
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, Request) (string, error) { return "", ErrNotConfigured }

// UsageRecorder 는 호출 사용량을 저장한다. repositories.LLMCallLogRepository 가 구현한다.
type UsageRecorder interface {
	Insert(ctx context.Context, log models.LLMCallLog) error
}

type Client struct {
	genai         *genai.Client
	model         string
	temperature   float32
	policyVersion string
	limiter       *quota.Limiter
	recorder      UsageRecorder
}

type options struct {
	limiter       *quota.Limiter
	recorder      UsageRecorder
	policyVersion string
	baseURL       string
	httpClient    *http.Client
}

type Option func(*options)

func WithLimiter(l *quota.Limiter) Option { return func(o *options) { o.limiter = l } }

func WithRecorder(r UsageRecorder) Option { return func(o *options) { o.recorder = r } }

// WithPolicyVersion 은 사용량 로그에 남길 프롬프트 정책 버전을 지정한다.
func WithPolicyVersion(v string) Option { return func(o *options) { o.policyVersion = v } }

// WithEndpoint 는 API base URL 과 http.Client 를 바꾼다. 테스트에서 httptest 서버를 붙일 때 쓴다.
func WithEndpoint(baseURL string, httpClient *http.Client) Option {
	return func(o *options) {
		o.baseURL = baseURL
		o.httpClient = httpClient
	}
}

// New 는 config.yaml 의 gemini 설정으로 Client 를 만든다.
func New(ctx context.Context, cfg config.GeminiConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.New(httpclient.Config{Timeout: 60 * time.Second, OmitBody: true})
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &Client{
		genai:         gc,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		policyVersion: o.policyVersion,
		limiter:       o.limiter,
		recorder:      o.recorder,
	}, nil
}

// Generate 는 프롬프트(및 선택적 파일)로 한 번 호출하고 트림된 텍스트를 반환한다.
// 한도를 넘기면 호출하지 않고 quota.ErrExhausted 를 반환한다. 재시도하지 않는다.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if !c.limiter.Reserve() {
		logger.WarnWithFields("gemini quota exhausted", logger.Fields{
			"stage":      req.Stage,
			"request_id": trace.RequestIDFromContext(ctx),
			"session_id": trace.SessionIDFromContext(ctx),
		})
		return "", quota.ErrExhausted
	}

	gcfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.temperature)}
	if req.JSON {
		gcfg.ResponseMIMEType = "application/json"
	}

	requestedAt := time.Now()
	result, err := c.genai.Models.GenerateContent(ctx, c.model, buildContents(req), gcfg)
	completedAt := time.Now()

	c.record(ctx, req.Stage, result, err, requestedAt, completedAt)

	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", req.Stage, err)
	}
	return strings.TrimSpace(result.Text()), nil
}

func buildContents(req Request) []*genai.Content {
	if req.File == nil {
		return genai.Text(req.Prompt)
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(req.File.Data, req.File.MIMEType),
		genai.NewPartFromText(req.Prompt),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// record 는 사용량 메타데이터만 저장한다. 프롬프트와 응답 본문은 남기지 않는다.
func (c *Client) record(ctx context.Context, stage string, result *genai.GenerateContentResponse, callErr error, requestedAt, completedAt time.Time) {
	entry := models.LLMCallLog{
		Stage:       stage,
		RequestID:   trace.RequestIDFromContext(ctx),
		SessionID:   trace.SessionIDFromContext(ctx),
		PolicyVer:   c.policyVersion,
		ModelName:   c.model,
		DurationMs:  completedAt.Sub(requestedAt).Milliseconds(),
		Success:     callErr == nil,
		RequestedAt: requestedAt,
		CompletedAt: completedAt,
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.ModelVersion = result.ModelVersion
		if u := result.UsageMetadata; u != nil {
			entry.InputTokens = int64(u.PromptTokenCount)
			entry.OutputTokens = int64(u.CandidatesTokenCount)
			entry.TotalTokens = int64(u.TotalTokenCount)
		}
	}

	logger.DebugWithFields("gemini call", logger.Fields{
		"stage":          stage,
		"model":          c.model,
		"policy_version": c.policyVersion,
		"duration_ms":    entry.DurationMs,
		"total_tokens":   entry.TotalTokens,
		"success":        entry.Success,
		"request_id":     entry.RequestID,
		"session_id":     entry.SessionID,
	})

	if c.recorder == nil {
		return
	}
	// 요청이 취소돼도 사용량 기록은 남긴다.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := c.recorder.Insert(recCtx, entry); err != nil {
		logger.WarnWithFields("failed to record gemini usage", logger.Fields{
			"stage":      stage,
			"error":      err.Error(),
			"request_id": entry.RequestID,
			"session_id": entry.SessionID,
		})
	}
}
