package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer()

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, _ = e.CountTokens("abcd")
	assert.Equal(t, 1, n)

	n, _ = e.CountTokens(strings.Repeat("a", 40))
	assert.Equal(t, 10, n)

	n, _ = e.CountTokens("你好世界")
	assert.Equal(t, 2, n)
}

func TestEstimator_Truncate(t *testing.T) {
	e := NewEstimatorTokenizer()
	text := strings.Repeat("a", 40)

	out, err := e.Truncate(text, 5)
	require.NoError(t, err)
	n, _ := e.CountTokens(out)
	assert.LessOrEqual(t, n, 5)
	assert.True(t, strings.HasPrefix(text, out))

	out, _ = e.Truncate(text, 100)
	assert.Equal(t, text, out)

	out, _ = e.Truncate(text, 0)
	assert.Empty(t, out)
}

func TestNewTiktokenTokenizer_EncodingSelection(t *testing.T) {
	assert.Equal(t, "o200k_base", NewTiktokenTokenizer("gpt-4o").encoding)
	assert.Equal(t, "o200k_base", NewTiktokenTokenizer("gpt-4o-mini-2024-07-18").encoding)
	assert.Equal(t, "cl100k_base", NewTiktokenTokenizer("gpt-4-0613").encoding)
	assert.Equal(t, "cl100k_base", NewTiktokenTokenizer("some-local-model").encoding)
	assert.Equal(t, "tiktoken[o200k_base]", NewTiktokenTokenizer("gpt-4o").Name())
}

func TestRegistry(t *testing.T) {
	RegisterTokenizer("test-model", NewEstimatorTokenizer())

	tk, err := GetTokenizer("test-model-v2")
	require.NoError(t, err)
	assert.Equal(t, "estimator", tk.Name())

	_, err = GetTokenizer("unregistered-xyz")
	assert.Error(t, err)
	assert.Equal(t, "estimator", GetTokenizerOrEstimator("unregistered-xyz").Name())
}
