package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type ctxKey string

const ctxKeyTrace ctxKey = "trace_info"

// Info 는 하나의 턴 요청에 대한 트레이싱 정보를 담는다.
// spanSeq 는 같은 요청 안에서 backend 호출(file analysis, context, intent, rewrite)마다 1씩 증가한다.
type Info struct {
	RequestID string
	spanSeq   int64

	mu        sync.RWMutex
	sessionID string
}

// GenerateID 는 트레이싱에 사용할 랜덤 ID 를 생성한다.
func GenerateID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return time.Now().UTC().Format("20060102T150405.000000000")
	}
	return hex.EncodeToString(b[:])
}

// WithRequestAndSpan 는 Request ID 와 초기 Span 값(보통 0)을 저장한 새 컨텍스트를 반환한다.
func WithRequestAndSpan(ctx context.Context, requestID string, initialSpan int64) context.Context {
	info := &Info{RequestID: requestID, spanSeq: initialSpan}
	return context.WithValue(ctx, ctxKeyTrace, info)
}

func infoFromContext(ctx context.Context) *Info {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKeyTrace).(*Info)
	return v
}

// RequestIDFromContext 는 컨텍스트에서 Request ID 를 조회한다.
func RequestIDFromContext(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return ""
	}
	return info.RequestID
}

// SetSessionID 는 세션 쿠키에서 확정된 session id 를 트레이스 정보에 기록한다.
// 트레이스가 없는 컨텍스트에서는 아무 일도 하지 않는다.
func SetSessionID(ctx context.Context, sessionID string) {
	info := infoFromContext(ctx)
	if info == nil {
		return
	}
	info.mu.Lock()
	info.sessionID = sessionID
	info.mu.Unlock()
}

// SessionIDFromContext 는 SetSessionID 로 기록된 session id 를 반환한다.
func SessionIDFromContext(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return ""
	}
	info.mu.RLock()
	defer info.mu.RUnlock()
	return info.sessionID
}

// CurrentSpanID 는 현재 span 시퀀스 값을 문자열로 반환한다. (증가시키지 않는다.)
func CurrentSpanID(ctx context.Context) string {
	info := infoFromContext(ctx)
	if info == nil {
		return "0"
	}
	val := atomic.LoadInt64(&info.spanSeq)
	if val <= 0 {
		return "0"
	}
	return strconv.FormatInt(val, 10)
}

// NextSpanID 는 spanSeq 를 1 증가시키고 (requestID, spanID) 를 반환한다.
func NextSpanID(ctx context.Context) (string, string) {
	info := infoFromContext(ctx)
	if info == nil {
		return GenerateID(), "1"
	}
	val := atomic.AddInt64(&info.spanSeq, 1)
	if val <= 0 {
		val = 1
	}
	return info.RequestID, strconv.FormatInt(val, 10)
}
