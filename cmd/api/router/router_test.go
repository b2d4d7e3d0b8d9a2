package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/cmd/api/assembler"
	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/dto"
	"assist-chat/cmd/api/enhancer"
	"assist-chat/cmd/api/extractor"
	"assist-chat/cmd/api/prompts"
	"assist-chat/cmd/api/resolver"
	"assist-chat/cmd/api/rewriter"
	"assist-chat/cmd/api/router"
	"assist-chat/cmd/api/services"
	"assist-chat/cmd/api/session"
	"assist-chat/config"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type stageGenerator struct {
	out map[string]string
}

func (g *stageGenerator) Generate(_ context.Context, req geminiclient.Request) (string, error) {
	return g.out[req.Stage], nil
}

type fakeBackend struct {
	err      error
	sessions []string
	texts    []string
}

func (b *fakeBackend) DetectIntent(_ context.Context, sessionID, text string) (map[string]any, error) {
	b.sessions = append(b.sessions, sessionID)
	b.texts = append(b.texts, text)
	if b.err != nil {
		return nil, b.err
	}
	return map[string]any{
		"queryResult": map[string]any{
			"responseMessages": []any{
				map[string]any{"text": map[string]any{"text": []any{"How much would you like to save?"}}},
			},
		},
	}, nil
}

type testServer struct {
	handler http.Handler
	backend *fakeBackend
}

func newServer(t *testing.T, mutate func(*config.AppConfig)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := *config.Default()
	cfg.Dialogflow.ProjectID = "proj"
	cfg.Dialogflow.SubdomainRegion = "asia-southeast1"
	cfg.Dialogflow.RegionID = "asia-southeast1"
	cfg.Dialogflow.AgentID = "agent"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Server.MaxUploadBytes = 1024
	if mutate != nil {
		mutate(&cfg)
	}

	gen := &stageGenerator{out: map[string]string{
		geminiclient.StageTranslate:    "I want to save money",
		geminiclient.StageRewrite:      "Sure! How much can you put aside each month?",
		geminiclient.StageFileAnalysis: `{"text":"Balance 120","labels":["receipt"],"dominant_colors":[],"safe_search":{}}`,
	}}
	be := &fakeBackend{}
	policy := prompts.MustLoad()
	svc := services.NewTurnService(services.TurnDeps{
		Extractor: extractor.New(extractor.NewGeminiAnalyzer(gen, policy)),
		Enhancer:  enhancer.New(gen, policy, cfg.Pipeline),
		Resolver:  resolver.New(be),
		Rewriter:  rewriter.New(gen, policy, cfg.Pipeline),
		Assembler: assembler.New(cfg.Pipeline.ResponseShape),
	}, cfg)

	return &testServer{
		backend: be,
		handler: router.Handler(router.Deps{
			Turns:          svc,
			Sessions:       session.NewManager(cfg.Session, false),
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			CORSOrigins:    cfg.Server.CORSOrigins,
		}),
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect-intent", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "upload.bin")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect-intent", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.ErrorResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestDetectIntentJSONIssuesSessionCookies(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(jsonRequest(t, dto.TurnRequestDTO{Query: "saya mahu simpan wang"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.TurnResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "How much would you like to save?", resp.AgentReply)
	assert.Equal(t, "Sure! How much can you put aside each month?", resp.RewrittenReply)

	cookies := cookiesByName(w)
	require.Contains(t, cookies, session.CookieSessionID)
	require.Contains(t, cookies, session.CookieSessionExpiry)
	id := cookies[session.CookieSessionID]
	_, err := uuid.Parse(id.Value)
	assert.NoError(t, err)
	assert.True(t, id.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, id.SameSite)
	assert.Equal(t, resp.SessionID, id.Value)
	assert.Equal(t, []string{id.Value}, s.backend.sessions)
}

func TestDetectIntentReusesLiveSession(t *testing.T) {
	s := newServer(t, nil)
	id := uuid.NewString()
	req := jsonRequest(t, dto.TurnRequestDTO{Query: "hello"})
	req.AddCookie(&http.Cookie{Name: session.CookieSessionID, Value: id})
	req.AddCookie(&http.Cookie{Name: session.CookieSessionExpiry, Value: time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)})

	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, cookiesByName(w)[session.CookieSessionID].Value)
	assert.Equal(t, []string{id}, s.backend.sessions)
}

func TestDetectIntentRotatesExpiredSession(t *testing.T) {
	s := newServer(t, nil)
	id := uuid.NewString()
	req := jsonRequest(t, dto.TurnRequestDTO{Query: "hello"})
	req.AddCookie(&http.Cookie{Name: session.CookieSessionID, Value: id})
	req.AddCookie(&http.Cookie{Name: session.CookieSessionExpiry, Value: time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)})

	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, id, cookiesByName(w)[session.CookieSessionID].Value)
}

func TestDetectIntentMultipartWithImage(t *testing.T) {
	s := newServer(t, nil)
	history := `[{"role":"assistant","message":"How can I help?"}]`
	w := s.do(multipartRequest(t, map[string]string{"history": history}, pngHeader))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, s.backend.texts, 1)
	assert.True(t, strings.HasPrefix(s.backend.texts[0], "Image contains text: 'Balance 120'."), s.backend.texts[0])
}

func TestDetectIntentErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.AppConfig)
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name:   "missing query",
			req:    func(t *testing.T) *http.Request { return jsonRequest(t, dto.TurnRequestDTO{}) },
			status: http.StatusBadRequest,
			code:   "missing_query",
		},
		{
			name: "malformed json",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/detect-intent", strings.NewReader("{"))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name: "invalid history",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"query": "hi", "history": "not json"}, nil)
			},
			status: http.StatusBadRequest,
			code:   "invalid_history",
		},
		{
			name: "unsupported file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"query": "hi"}, []byte("plain text file"))
			},
			status: http.StatusBadRequest,
			code:   "invalid_file_type",
		},
		{
			name: "file too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"query": "hi"}, append(pngHeader, make([]byte, 2048)...))
			},
			status: http.StatusRequestEntityTooLarge,
			code:   "file_too_large",
		},
		{
			name:   "missing agent id",
			mutate: func(c *config.AppConfig) { c.Dialogflow.AgentID = "" },
			req:    func(t *testing.T) *http.Request { return jsonRequest(t, dto.TurnRequestDTO{Query: "hi"}) },
			status: http.StatusInternalServerError,
			code:   "configuration_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, tc.mutate)
			w := s.do(tc.req(t))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(t, w))
			assert.Empty(t, cookiesByName(w), "cookies are only written on success")
			assert.Empty(t, s.backend.texts)
		})
	}
}

func TestDetectIntentBackendFailure(t *testing.T) {
	s := newServer(t, nil)
	s.backend.err = errors.New("unavailable")

	w := s.do(jsonRequest(t, dto.TurnRequestDTO{Query: "hi"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "intent_detection_failed", errorCode(t, w))
}

func TestResetSessionExpiresCookies(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := cookiesByName(w)
	for _, name := range []string{session.CookieSessionID, session.CookieSessionExpiry} {
		require.Contains(t, cookies, name)
		assert.Equal(t, -1, cookies[name].MaxAge)
		assert.Empty(t, cookies[name].Value)
	}
}

func TestCORSPreflightAllowsCredentials(t *testing.T) {
	s := newServer(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/detect-intent", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := s.do(req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
