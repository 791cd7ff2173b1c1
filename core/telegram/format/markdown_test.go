package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkdown(t *testing.T) {
	got, err := EscapeMarkdown("snake_case *bold* [x] `c`", MarkdownV1)
	require.NoError(t, err)
	assert.Equal(t, "snake\\_case \\*bold\\* \\[x] \\`c\\`", got)

	got, err = EscapeMarkdown("1.5 (a-b)!", MarkdownV2)
	require.NoError(t, err)
	assert.Equal(t, "1\\.5 \\(a\\-b\\)\\!", got)

	_, err = EscapeMarkdown("x", 3)
	assert.Error(t, err)

	assert.Equal(t, "a\\_b", MD("a_b"))
}
