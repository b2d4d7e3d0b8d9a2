package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/cmd/api/clients/geminiclient"
	"assist-chat/cmd/api/extractor"
	"assist-chat/cmd/api/jsonextract"
	"assist-chat/cmd/api/prompts"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	pdfHeader  = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

type fakeGenerator struct {
	out   string
	err   error
	calls []geminiclient.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req geminiclient.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.out, f.err
}

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngHeader, extractor.MIMEPNG},
		{"jpeg", jpegHeader, extractor.MIMEJPEG},
		{"pdf", pdfHeader, extractor.MIMEPDF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractor.Sniff(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSniffRejectsPlainText(t *testing.T) {
	_, err := extractor.Sniff([]byte("just some notes, renamed to photo.png"))
	assert.ErrorIs(t, err, extractor.ErrInvalidFileType)
	assert.Contains(t, err.Error(), "text/plain")
}

func TestImageFragment(t *testing.T) {
	frag := extractor.ImageFragment(extractor.ImageAnalysis{
		Text:   " Remittance slip ",
		Labels: []string{"Receipt", "Paper"},
	})
	assert.Equal(t, "Image contains text: 'Remittance slip'. Labeled as Receipt, Paper.", frag)

	flagged := extractor.ImageFragment(extractor.ImageAnalysis{
		Labels:     []string{"Person"},
		SafeSearch: extractor.SafeSearch{Violence: "VERY_LIKELY"},
	})
	assert.Contains(t, flagged, "Flagged as potentially unsafe content.")
}

func TestExtractImageUsesStructuredAnalysis(t *testing.T) {
	gen := &fakeGenerator{out: "```json\n{\"text\":\"Balance 120.50\",\"labels\":[\"Screenshot\",\"Font\"],\"dominant_colors\":[\"white\"],\"safe_search\":{\"adult\":\"VERY_UNLIKELY\"}}\n```"}
	ex := extractor.New(extractor.NewGeminiAnalyzer(gen, prompts.MustLoad()))

	frag, err := ex.Extract(context.Background(), extractor.File{Data: pngHeader, MIMEType: extractor.MIMEPNG})
	require.NoError(t, err)
	assert.Equal(t, "Image contains text: 'Balance 120.50'. Labeled as Screenshot, Font.", frag)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, geminiclient.StageFileAnalysis, gen.calls[0].Stage)
	assert.True(t, gen.calls[0].JSON)
	require.NotNil(t, gen.calls[0].File)
	assert.Equal(t, extractor.MIMEPNG, gen.calls[0].File.MIMEType)
}

func TestExtractPDF(t *testing.T) {
	gen := &fakeGenerator{out: "Account statement\nMarch 2024"}
	ex := extractor.New(extractor.NewGeminiAnalyzer(gen, prompts.MustLoad()))

	frag, err := ex.Extract(context.Background(), extractor.File{Data: pdfHeader, MIMEType: extractor.MIMEPDF})
	require.NoError(t, err)
	assert.Equal(t, "PDF document contains text: 'Account statement\nMarch 2024'.", frag)
}

func TestExtractFailuresWrapErrExtraction(t *testing.T) {
	backendErr := errors.New("backend down")
	ex := extractor.New(extractor.NewGeminiAnalyzer(&fakeGenerator{err: backendErr}, prompts.MustLoad()))

	_, err := ex.Extract(context.Background(), extractor.File{Data: pdfHeader, MIMEType: extractor.MIMEPDF})
	assert.ErrorIs(t, err, extractor.ErrExtraction)
	assert.ErrorIs(t, err, backendErr)

	// 구조화 응답을 읽지 못해도 분석되지 않은 텍스트로 대체하지 않는다.
	ex = extractor.New(extractor.NewGeminiAnalyzer(&fakeGenerator{out: "I see a cat"}, prompts.MustLoad()))
	_, err = ex.Extract(context.Background(), extractor.File{Data: pngHeader, MIMEType: extractor.MIMEPNG})
	assert.ErrorIs(t, err, extractor.ErrExtraction)
	assert.True(t, jsonextract.IsParseFailure(err))
}
