// Package session 은 intent backend 세션 id 를 두 개의 쿠키로 관리한다. 서버 측 저장소는 없다.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"assist-chat/config"
)

const (
	CookieSessionID     = "dialogflow_session_id"
	CookieSessionExpiry = "dialogflow_session_expiry"

	// 쿠키 자체의 수명. 세션 만료 판단은 expiry 쿠키 값으로 한다.
	cookieMaxAge = 7 * 24 * 60 * 60
)

type Session struct {
	ID        string
	ExpiresAt time.Time
	// Rotated 는 기존 id 를 쓰지 못하고 새로 발급했음을 뜻한다.
	Rotated bool
}

type Manager struct {
	window time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(cfg config.SessionConfig, secure bool) *Manager {
	return NewManagerWithClock(cfg.InactivityWindow, secure, time.Now)
}

func NewManagerWithClock(window time.Duration, secure bool, now func() time.Time) *Manager {
	if window <= 0 {
		window = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{window: window, secure: secure, now: now}
}

// Resolve 는 expiry 가 아직 지나지 않았으면 같은 id 를, 아니면 새 UUID 를 쓴다.
// 어느 경우든 만료 시각은 now + window 로 갱신된다.
func (m *Manager) Resolve(idCookie, expiryCookie string) Session {
	now := m.now()
	s := Session{ExpiresAt: now.Add(m.window)}

	if id, err := uuid.Parse(idCookie); err == nil {
		if exp, err := time.Parse(time.RFC3339, expiryCookie); err == nil && exp.After(now) {
			s.ID = id.String()
			return s
		}
	}
	s.ID = uuid.NewString()
	s.Rotated = true
	return s
}

func (m *Manager) FromRequest(r *http.Request) Session {
	var id, exp string
	if c, err := r.Cookie(CookieSessionID); err == nil {
		id = c.Value
	}
	if c, err := r.Cookie(CookieSessionExpiry); err == nil {
		exp = c.Value
	}
	return m.Resolve(id, exp)
}

// Write 는 두 쿠키를 갱신한다.
func (m *Manager) Write(w http.ResponseWriter, s Session) {
	http.SetCookie(w, m.cookie(CookieSessionID, s.ID, cookieMaxAge))
	http.SetCookie(w, m.cookie(CookieSessionExpiry, s.ExpiresAt.UTC().Format(time.RFC3339), cookieMaxAge))
}

// Reset 은 두 쿠키를 즉시 만료시킨다. 다음 요청은 새 세션으로 시작한다.
func (m *Manager) Reset(w http.ResponseWriter) {
	for _, name := range []string{CookieSessionID, CookieSessionExpiry} {
		c := m.cookie(name, "", -1)
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
