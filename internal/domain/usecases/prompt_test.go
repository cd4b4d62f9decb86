package usecases

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
)

func TestPromptBuilder_DefaultMentionsRequest(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	got, err := b.Render("nature", entities.StyleHaiku, entities.LengthShort, []string{"leaf one", "leaf two"})
	require.NoError(t, err)
	assert.Contains(t, got, "'nature'")
	assert.Contains(t, got, "haiku")
	assert.Contains(t, got, "short")
	assert.Contains(t, got, "[1]\nleaf one")
	assert.Contains(t, got, "[2]\nleaf two")
	assert.Less(t, strings.Index(got, "leaf one"), strings.Index(got, "leaf two"))
}

func TestPromptBuilder_NoFragmentsNoInspirationBlock(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	got, err := b.Render("the sea", entities.StyleSonnet, entities.LengthLong, nil)
	require.NoError(t, err)
	assert.NotContains(t, got, "inspiration")
	assert.Contains(t, got, "'the sea'")
}

func TestPromptBuilder_Deterministic(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	frags := []string{"a", "b", "c"}
	first, err := b.Render("rain", entities.StyleLimerick, entities.LengthMedium, frags)
	require.NoError(t, err)
	second, err := b.Render("rain", entities.StyleLimerick, entities.LengthMedium, frags)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPromptBuilder_ThemeInsertedVerbatim(t *testing.T) {
	b, err := NewPromptBuilder("")
	require.NoError(t, err)

	got, err := b.Render(`<b>"moon" & stars</b>`, entities.StyleFreeVerse, entities.LengthShort, nil)
	require.NoError(t, err)
	assert.Contains(t, got, `<b>"moon" & stars</b>`)
}

func TestPromptBuilder_CustomTemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{.Style}}|{{.Length}}|{{.Theme}}|{{len .Fragments}}"), 0o644))

	b, err := NewPromptBuilderFromFile(path)
	require.NoError(t, err)
	got, err := b.Render("x", entities.StyleFreeVerse, entities.LengthMedium, []string{"f"})
	require.NoError(t, err)
	assert.Equal(t, "free verse|medium|x|1", got)
}

func TestPromptBuilder_BadTemplate(t *testing.T) {
	_, err := NewPromptBuilder("{{.Theme")
	require.Error(t, err)

	_, err = NewPromptBuilderFromFile(filepath.Join(t.TempDir(), "missing.tmpl"))
	require.Error(t, err)
}
