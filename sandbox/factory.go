package sandbox

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/isdmx/coderun/config"
)

// NewExecutor creates the dispatcher described by the configuration
func NewExecutor(logger *zap.Logger, cfg *config.Config) (Executor, error) {
	messages, err := MessagesFor(cfg.Sandbox.Locale)
	if err != nil {
		return nil, err
	}

	recipes, err := RecipesFromConfig(cfg.Languages)
	if err != nil {
		return nil, err
	}

	timeout := cfg.GetTimeout()
	stager := NewArtifactStager(cfg.Sandbox.ScratchDir)
	runner := NewToolchainRunner(logger.Named("toolchain"), cfg.Sandbox.MaxConcurrentProcesses)

	script := NewScriptSandbox(logger.Named("script"), timeout, WithScriptMessages(messages))
	pipeline := NewPipeline(logger.Named("pipeline"), stager, timeout,
		WithPipelineCommandRunner(runner),
		WithPipelineMessages(messages))

	logger.Info("execution engine configured",
		zap.Duration("timeout", timeout),
		zap.String("scratch_dir", stager.Dir()),
		zap.Int("max_concurrent_processes", cfg.Sandbox.MaxConcurrentProcesses),
		zap.String("locale", cfg.Sandbox.Locale),
		zap.Strings("languages", cfg.LanguageNames()))

	return NewDispatcher(logger, script, pipeline, recipes, WithDispatcherMessages(messages)), nil
}

// RecipesFromConfig builds the recipe table. Environment keys are
// upper-cased because the config loader folds map keys to lower case.
func RecipesFromConfig(languages map[string]config.Language) (map[string]Recipe, error) {
	recipes := make(map[string]Recipe, len(languages))
	for name, lang := range languages {
		if name == LanguageJavaScript {
			return nil, fmt.Errorf("language %s runs in-process and cannot have a recipe", name)
		}

		env := make(map[string]string, len(lang.Environment))
		for key, value := range lang.Environment {
			env[strings.ToUpper(key)] = value
		}

		recipe, err := NewRecipe(name, RecipeSpec{
			Extension:       lang.Extension,
			FilePrefix:      lang.FilePrefix,
			EntryPattern:    lang.EntryPattern,
			CompileCmd:      lang.CompileCmd,
			RunCmd:          lang.RunCmd,
			BinaryExtension: lang.BinaryExtension,
			Environment:     env,
		})
		if err != nil {
			return nil, err
		}
		recipes[name] = recipe
	}
	return recipes, nil
}
