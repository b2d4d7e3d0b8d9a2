package quota

import (
	"errors"
	"sync"
	"time"

	"assist-chat/config"
)

// ErrExhausted 는 이번 생성형 호출을 한도 때문에 건너뛰어야 할 때 반환된다.
var ErrExhausted = errors.New("generative call quota exhausted")

// Limiter 는 생성형 호출에 대한 분당/일일 한도를 관리한다.
// 한도를 넘기면 대기하지 않고 즉시 false 를 돌려준다. 호출자는 이를 fail-soft 경로로 처리한다.
// 인스턴스별 인메모리 카운터이며, 재시작되면 초기화된다.
type Limiter struct {
	mu  sync.Mutex
	now func() time.Time

	dailyLimit int
	usedToday  int
	dayKey     string

	minuteLimit int
	minuteStart time.Time
	usedMinute  int
}

// NewLimiterFromConfig 는 config.yaml 의 quota 설정으로 Limiter 를 만든다.
// 값이 0 이하인 방향은 제한하지 않는다.
func NewLimiterFromConfig(cfg config.QuotaConfig) *Limiter {
	return NewLimiter(cfg.RequestsPerMinute, cfg.RequestsPerDay, time.Now)
}

func NewLimiter(perMinute, perDay int, now func() time.Time) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	if perDay < 0 {
		perDay = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{minuteLimit: perMinute, dailyLimit: perDay, now: now}
}

// Reserve 는 호출 1회를 예약한다. 한도가 남아 있지 않으면 false 를 반환한다.
// nil Limiter 는 항상 true 를 반환한다.
func (l *Limiter) Reserve() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	todayKey := now.Format("2006-01-02")
	if l.dayKey != todayKey {
		l.dayKey = todayKey
		l.usedToday = 0
	}
	if now.Sub(l.minuteStart) >= time.Minute {
		l.minuteStart = now
		l.usedMinute = 0
	}

	if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
		return false
	}
	if l.minuteLimit > 0 && l.usedMinute >= l.minuteLimit {
		return false
	}

	l.usedToday++
	l.usedMinute++
	return true
}
