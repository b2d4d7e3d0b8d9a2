package dialogflowclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"assist-chat/cmd/api/httpclient"
	"assist-chat/config"
)

const dialogflowScope = "https://www.googleapis.com/auth/dialogflow"

// Client 는 Dialogflow CX REST detectIntent 호출을 담당한다.
type Client struct {
	base *httpclient.BaseClient
	cfg  config.DialogflowConfig

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

type textInput struct {
	Text string `json:"text"`
}

type queryInput struct {
	Text         textInput `json:"text"`
	LanguageCode string    `json:"languageCode"`
}

type queryParams struct {
	TimeZone string `json:"timeZone,omitempty"`
}

type DetectIntentRequest struct {
	QueryInput  queryInput  `json:"queryInput"`
	QueryParams queryParams `json:"queryParams"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("dialogflow request failed: status=%d body=%s", e.StatusCode, e.Body)
}

// New 는 Application Default Credentials 로 토큰을 발급받는 Client 를 만든다.
// 자격 증명은 첫 호출 시점에 조회하므로 로컬 환경에서도 프로세스는 뜬다.
func New(cfg config.DialogflowConfig) *Client {
	return NewWithTokenSource(cfg, nil, nil)
}

// NewWithTokenSource 는 토큰 소스와 http.Client 를 직접 지정한다. ts 가 nil 이면 ADC 를 사용한다.
// httpClient 가 nil 이면 바디를 로그에 남기지 않는 공용 client 를 쓴다. (요청 바디는 사용자 질의다.)
func NewWithTokenSource(cfg config.DialogflowConfig, ts oauth2.TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(httpclient.Config{Timeout: cfg.Timeout, OmitBody: true})
	}
	return &Client{
		base:   httpclient.NewBaseClientWithClient(httpClient, baseURL(cfg)),
		cfg:    cfg,
		tokens: ts,
	}
}

func baseURL(cfg config.DialogflowConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s-dialogflow.googleapis.com", cfg.SubdomainRegion)
}

// SessionPath 는 detectIntent 대상 리소스 경로를 만든다.
func (c *Client) SessionPath(sessionID string) string {
	return fmt.Sprintf("/v3/projects/%s/locations/%s/agents/%s/sessions/%s:detectIntent",
		c.cfg.ProjectID, c.cfg.RegionID, c.cfg.AgentID, sessionID)
}

func (c *Client) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens != nil {
		return c.tokens, nil
	}
	ts, err := google.DefaultTokenSource(context.WithoutCancel(ctx), dialogflowScope)
	if err != nil {
		return nil, fmt.Errorf("dialogflow credentials: %w", err)
	}
	c.tokens = oauth2.ReuseTokenSource(nil, ts)
	return c.tokens, nil
}

// DetectIntent 는 text 를 session 에 보내고 응답 envelope 전체를 그대로 반환한다.
// 2xx 가 아니면 *HTTPError 를 반환한다.
func (c *Client) DetectIntent(ctx context.Context, sessionID, text string) (map[string]any, error) {
	payload := DetectIntentRequest{
		QueryInput: queryInput{
			Text:         textInput{Text: text},
			LanguageCode: c.cfg.LanguageCode,
		},
		QueryParams: queryParams{TimeZone: c.cfg.TimeZone},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	ts, err := c.tokenSource(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("dialogflow token: %w", err)
	}

	req, err := c.base.NewRequest(ctx, http.MethodPost, c.SessionPath(sessionID), nil, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-user-project", c.cfg.ProjectID)
	tok.SetAuthHeader(req)

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if readErr != nil {
		return nil, fmt.Errorf("dialogflow response read failed: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("dialogflow response decode failed: %w", err)
	}
	return out, nil
}
