// Package extractor 는 업로드된 파일을 사용자 질의에 덧붙일 텍스트 조각으로 바꾼다.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEPDF  = "application/pdf"
)

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrExtraction      = errors.New("file extraction failed")
)

var allowedTypes = []string{MIMEJPEG, MIMEPNG, MIMEPDF}

// Sniff 는 선언된 Content-Type 이 아니라 바이트 내용으로 MIME 을 판별한다.
// 허용 목록 밖이면 ErrInvalidFileType 을 감싼 에러를 반환한다.
func Sniff(data []byte) (string, error) {
	m := mimetype.Detect(data)
	for _, allowed := range allowedTypes {
		if m.Is(allowed) {
			return allowed, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidFileType, m.String())
}

// File 은 검증을 통과한 업로드 파일이다.
type File struct {
	Name     string
	Data     []byte
	MIMEType string
}

type SafeSearch struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
	Racy     string `json:"racy"`
	Medical  string `json:"medical"`
	Spoof    string `json:"spoof"`
}

// Flagged 는 adult 또는 violence 가 LIKELY 이상인지 보고한다.
func (s SafeSearch) Flagged() bool {
	return likely(s.Adult) || likely(s.Violence)
}

func likely(v string) bool {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "LIKELY", "VERY_LIKELY":
		return true
	}
	return false
}

// ImageAnalysis 는 이미지 한 장에 대한 텍스트/라벨/속성/세이프서치 결과다.
type ImageAnalysis struct {
	Text           string     `json:"text"`
	Labels         []string   `json:"labels"`
	DominantColors []string   `json:"dominant_colors"`
	SafeSearch     SafeSearch `json:"safe_search"`
}

// Analyzer 는 파일 이해 백엔드다.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (ImageAnalysis, error)
	ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error)
}

type Extractor struct {
	analyzer Analyzer
}

func New(analyzer Analyzer) *Extractor {
	return &Extractor{analyzer: analyzer}
}

// Extract 는 파일 종류에 맞는 분석을 한 번 호출하고 텍스트 조각을 만든다. 재시도하지 않는다.
func (e *Extractor) Extract(ctx context.Context, f File) (string, error) {
	switch f.MIMEType {
	case MIMEJPEG, MIMEPNG:
		a, err := e.analyzer.AnalyzeImage(ctx, f.Data, f.MIMEType)
		if err != nil {
			return "", fmt.Errorf("%w: image analysis: %w", ErrExtraction, err)
		}
		return ImageFragment(a), nil
	case MIMEPDF:
		text, err := e.analyzer.ExtractDocumentText(ctx, f.Data, f.MIMEType)
		if err != nil {
			return "", fmt.Errorf("%w: document text: %w", ErrExtraction, err)
		}
		return DocumentFragment(text), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidFileType, f.MIMEType)
	}
}

func ImageFragment(a ImageAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Image contains text: '%s'. Labeled as %s.", strings.TrimSpace(a.Text), strings.Join(a.Labels, ", "))
	if a.SafeSearch.Flagged() {
		b.WriteString(" Flagged as potentially unsafe content.")
	}
	return b.String()
}

func DocumentFragment(text string) string {
	return fmt.Sprintf("PDF document contains text: '%s'.", strings.TrimSpace(text))
}
