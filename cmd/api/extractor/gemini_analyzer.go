package extractor

import (
	"context"

	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/jsonextract"
	"assist-chat/cmd/api/prompts"
)

// GeminiAnalyzer 는 멀티모달 생성형 호출 한 번으로 파일을 분석한다.
type GeminiAnalyzer struct {
	gen    geminiclient.Generator
	policy *prompts.Policy
}

func NewGeminiAnalyzer(gen geminiclient.Generator, policy *prompts.Policy) *GeminiAnalyzer {
	return &GeminiAnalyzer{gen: gen, policy: policy}
}

func (a *GeminiAnalyzer) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (ImageAnalysis, error) {
	raw, err := a.gen.Generate(ctx, geminiclient.Request{
		Stage:  geminiclient.StageFileAnalysis,
		Prompt: a.policy.ImageAnalysis,
		File:   &geminiclient.FilePart{Data: data, MIMEType: mimeType},
		JSON:   true,
	})
	if err != nil {
		return ImageAnalysis{}, err
	}
	return jsonextract.Decode[ImageAnalysis](raw)
}

func (a *GeminiAnalyzer) ExtractDocumentText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return a.gen.Generate(ctx, geminiclient.Request{
		Stage:  geminiclient.StageFileAnalysis,
		Prompt: a.policy.DocumentText,
		File:   &geminiclient.FilePart{Data: data, MIMEType: mimeType},
	})
}
