package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"assist-chat/cmd/api/trace"
	"assist-chat/cmd/internal/logger"
)

const maxBodyLog = 1024

// Config 는 아웃바운드 HTTP 클라이언트 공통 설정이다.
type Config struct {
	Timeout time.Duration
	// Transport 가 nil 이면 http.DefaultTransport 를 사용한다.
	Transport http.RoundTripper
	// OmitBody 가 true 이면 JSON 바디도 로그에 남기지 않는다. (프롬프트 본문 등)
	OmitBody bool
}

// loggingRoundTripper 는 모든 아웃바운드 호출에 대해 공통 로깅과 X-Request-Id 트레이싱을 수행한다.
type loggingRoundTripper struct {
	inner    http.RoundTripper
	omitBody bool
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx := req.Context()
	requestID, spanID := trace.NextSpanID(ctx)
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("X-Span-Id", spanID)

	// JSON 바디만 스니펫으로 남긴다. 사용자 파일(멀티파트, 바이너리)은 로깅하지 않는다.
	var bodySnippet string
	if !l.omitBody && req.Body != nil && strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		if bodyBytes, err := io.ReadAll(req.Body); err == nil {
			if len(bodyBytes) > maxBodyLog {
				bodySnippet = string(bodyBytes[:maxBodyLog])
			} else {
				bodySnippet = string(bodyBytes)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	fields := logger.Fields{
		"method":     req.Method,
		"url":        redactURL(req.URL),
		"request_id": requestID,
		"span_id":    spanID,
		"session_id": trace.SessionIDFromContext(ctx),
	}
	if bodySnippet != "" {
		fields["body"] = bodySnippet
	}

	resp, err := l.inner.RoundTrip(req)
	fields["duration"] = time.Since(start).String()
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorWithFields("httpclient request failed", fields)
		return nil, err
	}

	fields["status"] = resp.StatusCode
	logger.DebugWithFields("httpclient request success", fields)
	return resp, nil
}

// redactURL 은 쿼리 문자열(API key 등)을 제외한 URL 을 반환한다.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}

// BaseClient 는 공통 HTTP 클라이언트와 baseURL 을 묶어두고 요청 생성을 돕는다.
type BaseClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewBaseClientWithClient 는 이미 생성된 http.Client 를 사용하는 BaseClient 를 생성한다.
// httpClient 가 nil 이면 기본 클라이언트를 사용한다.
func NewBaseClientWithClient(httpClient *http.Client, baseURL string) *BaseClient {
	if httpClient == nil {
		httpClient = NewDefault()
	}
	return &BaseClient{
		HTTPClient: httpClient,
		BaseURL:    baseURL,
	}
}

// NewRequest 는 baseURL 과 상대 경로, 쿼리, 바디로 새 요청을 생성한다.
// relPath 에 쿼리(?)가 포함되면 path.Join 이 이를 손상시키므로 에러를 반환한다.
// relPath 의 콜론(:detectIntent 같은 custom method)은 그대로 보존된다.
func (c *BaseClient) NewRequest(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.Contains(relPath, "?") {
		return nil, fmt.Errorf("httpclient: relPath must not contain query string (use query parameter instead): %s", relPath)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		base.Path = path.Join(base.Path, relPath)
	}
	if query != nil {
		base.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}

// Do 는 내부 HTTP 클라이언트로 요청을 실행한다.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	return c.HTTPClient.Do(req)
}

// New 는 주어진 설정으로 http.Client 를 생성한다. Timeout 이 0 이면 기본값 10초를 사용한다.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: transport, omitBody: cfg.OmitBody},
	}
}

// NewDefault 는 기본 설정(Timeout 10초)의 http.Client 를 생성한다.
func NewDefault() *http.Client {
	return New(Config{})
}
