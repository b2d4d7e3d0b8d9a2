package services

import (
	"fmt"
	"net/http"
)

// ErrorKind 는 턴 실패 분류다. 여기 정의된 것만 호출자에게 전달된다.
// context enhancement, rewrite, assembly 실패는 파이프라인 안에서 복구된다.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "ConfigurationError"
	KindInvalidInput    ErrorKind = "InvalidInput"
	KindExtraction      ErrorKind = "ExtractionFailure"
	KindIntentDetection ErrorKind = "IntentDetectionFailure"
)

type TurnError struct {
	Kind       ErrorKind
	StatusCode int
	ErrorCode  string
	Cause      error
}

func (e *TurnError) Error() string {
	if e == nil {
		return "turn_failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.ErrorCode, e.Cause)
	}
	return e.ErrorCode
}

func (e *TurnError) Unwrap() error { return e.Cause }

func configurationError(cause error) *TurnError {
	return &TurnError{Kind: KindConfiguration, StatusCode: http.StatusInternalServerError, ErrorCode: "configuration_error", Cause: cause}
}

func missingQueryError(cause error) *TurnError {
	return &TurnError{Kind: KindInvalidInput, StatusCode: http.StatusBadRequest, ErrorCode: "missing_query", Cause: cause}
}

func invalidFileTypeError(cause error) *TurnError {
	return &TurnError{Kind: KindInvalidInput, StatusCode: http.StatusBadRequest, ErrorCode: "invalid_file_type", Cause: cause}
}

func extractionError(cause error) *TurnError {
	return &TurnError{Kind: KindExtraction, StatusCode: http.StatusServiceUnavailable, ErrorCode: "extraction_failed", Cause: cause}
}

func intentDetectionError(cause error) *TurnError {
	return &TurnError{Kind: KindIntentDetection, StatusCode: http.StatusServiceUnavailable, ErrorCode: "intent_detection_failed", Cause: cause}
}
