package prompts_test

import (
	"os"
	"path/filepath"
	"testing"

	"starlit-server/internal/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvider_EmbeddedTemplates(t *testing.T) {
	p, err := prompts.NewProvider("", zap.NewNop())
	require.NoError(t, err)

	for _, key := range []string{
		prompts.KeyRouter, prompts.KeyGeneratorNew, prompts.KeyGeneratorModify,
		prompts.KeyChecker, prompts.KeyMoral, prompts.KeyRetriever,
	} {
		t.Run(key, func(t *testing.T) {
			pr, err := p.Render(key, nil)
			require.NoError(t, err)
			assert.NotEmpty(t, pr.System)
			assert.NotContains(t, pr.System, "{{")
			assert.NotContains(t, pr.User, "{{")
		})
	}
}

func TestProvider_RenderSubstitutes(t *testing.T) {
	p, err := prompts.NewProvider("", zap.NewNop())
	require.NoError(t, err)

	pr, err := p.Render(prompts.KeyGeneratorNew, map[string]string{
		"THEME":        "a brave little mouse",
		"WORDS_MIN":    "200",
		"WORDS_MAX":    "400",
		"WORDS_TARGET": "300",
	})
	require.NoError(t, err)
	assert.Contains(t, pr.User, "a brave little mouse")
	assert.Contains(t, pr.System, "between 200 and 400 words")
}

func TestProvider_UnknownKey(t *testing.T) {
	p, err := prompts.NewProvider("", zap.NewNop())
	require.NoError(t, err)
	_, err = p.Render("nope", nil)
	assert.ErrorIs(t, err, prompts.ErrPromptNotFound)
}

func TestProvider_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moral:\n  system: \"Say the lesson of {{STORY}}\"\n  user: \"\"\n"), 0o600))

	p, err := prompts.NewProvider(path, zap.NewNop())
	require.NoError(t, err)

	pr, err := p.Render(prompts.KeyMoral, map[string]string{"STORY": "the owl"})
	require.NoError(t, err)
	assert.Equal(t, "Say the lesson of the owl", pr.System)

	// остальные шаблоны остаются встроенными
	_, err = p.Render(prompts.KeyChecker, nil)
	assert.NoError(t, err)
}

func TestProvider_MissingOverrideFile(t *testing.T) {
	_, err := prompts.NewProvider(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	assert.Error(t, err)
}
