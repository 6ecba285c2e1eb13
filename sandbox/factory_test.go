package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/coderun/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Transport: config.TransportStdio, HTTPPort: 8080},
		Sandbox: config.SandboxConfig{
			TimeoutMs:              2000,
			ScratchDir:             t.TempDir(),
			MaxConcurrentProcesses: 2,
			Locale:                 LocaleEnglish,
		},
		Logging:   config.LoggingConfig{Mode: "development", Level: "debug"},
		Languages: config.DefaultLanguages(),
	}
}

func TestNewExecutor(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("DefaultLanguages", func(t *testing.T) {
		executor, err := NewExecutor(logger, testConfig(t))
		require.NoError(t, err)
		require.NotNil(t, executor)

		assert.Equal(t, []string{
			LanguageCPP, LanguageGo, LanguageJava, LanguageJavaScript, LanguageNodeJS, LanguagePython,
		}, executor.Languages())

		res := executor.Execute(context.Background(), ExecutionRequest{Code: "[1, 2].map(x => x * 2)", Language: LanguageJavaScript})
		require.True(t, res.Success)
		assert.Equal(t, []any{float64(2), float64(4)}, res.Result)
	})

	t.Run("KoreanLocale", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sandbox.Locale = LocaleKorean

		executor, err := NewExecutor(logger, cfg)
		require.NoError(t, err)

		res := executor.Execute(context.Background(), ExecutionRequest{})
		assert.Equal(t, "코드와 언어를 모두 제공해야 합니다.", res.Result)
	})

	t.Run("UnknownLocale", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Sandbox.Locale = "fr"

		_, err := NewExecutor(logger, cfg)
		require.Error(t, err)
	})

	t.Run("InvalidRecipe", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Languages = map[string]config.Language{"broken": {Extension: ".x"}}

		_, err := NewExecutor(logger, cfg)
		require.Error(t, err)
	})
}

func TestRecipesFromConfig(t *testing.T) {
	t.Run("EnvironmentKeysUpperCased", func(t *testing.T) {
		recipes, err := RecipesFromConfig(map[string]config.Language{
			LanguagePython: {
				Extension:   ".py",
				RunCmd:      []string{"python3", "{source}"},
				Environment: map[string]string{"pythonpath": "/opt/lib"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"PYTHONPATH=/opt/lib"}, recipes[LanguagePython].Env)
	})

	t.Run("JavaScriptIsReserved", func(t *testing.T) {
		_, err := RecipesFromConfig(map[string]config.Language{
			LanguageJavaScript: {Extension: ".js", RunCmd: []string{"node", "{source}"}},
		})
		require.Error(t, err)
	})

	t.Run("DefaultTable", func(t *testing.T) {
		recipes, err := RecipesFromConfig(config.DefaultLanguages())
		require.NoError(t, err)

		assert.True(t, recipes[LanguageJava].Compiled())
		assert.NotNil(t, recipes[LanguageJava].EntryPattern)
		assert.True(t, recipes[LanguageCPP].Compiled())
		assert.True(t, recipes[LanguageGo].Compiled())
		assert.False(t, recipes[LanguagePython].Compiled())
		assert.False(t, recipes[LanguageNodeJS].Compiled())
		assert.Equal(t, "node_code", recipes[LanguageNodeJS].FilePrefix)
	})
}
