package normalizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assist-chat/cmd/api/extractor"
	"assist-chat/cmd/api/normalizer"
)

func TestNormalizeWithoutFileIsIdentity(t *testing.T) {
	queries := []string{
		"How do I open an account?",
		"  leading and trailing  ",
		"saya mahu hantar wang ke Indonesia",
		"আমি টাকা পাঠাতে চাই",
		"{\"looks\":\"like json\"}",
		"x",
	}
	for _, q := range queries {
		got, err := normalizer.Normalize(q, "")
		require.NoError(t, err)
		assert.Equal(t, q, got)
	}
}

func TestNormalizeComposesFileFragmentInOrder(t *testing.T) {
	frag := extractor.ImageFragment(extractor.ImageAnalysis{
		Text:   "Transfer receipt 500 SGD",
		Labels: []string{"Document", "Receipt"},
	})

	got, err := normalizer.Normalize("Was my transfer successful?", frag)
	require.NoError(t, err)

	positions := []int{
		strings.Index(got, "Transfer receipt 500 SGD"),
		strings.Index(got, "Document"),
		strings.Index(got, "Receipt"),
		strings.Index(got, "Was my transfer successful?"),
	}
	for i, p := range positions {
		require.GreaterOrEqual(t, p, 0, "part %d missing", i)
		if i > 0 {
			assert.Greater(t, p, positions[i-1])
		}
	}
	assert.Contains(t, got, "Based on this information, please answer the query: Was my transfer successful?")
}

func TestNormalizeFileOnly(t *testing.T) {
	got, err := normalizer.Normalize("", "PDF document contains text: 'hello'.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "PDF document contains text: 'hello'."))
}

func TestNormalizeMissingQuery(t *testing.T) {
	_, err := normalizer.Normalize("", "")
	assert.ErrorIs(t, err, normalizer.ErrMissingQuery)
}
