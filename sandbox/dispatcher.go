package sandbox

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher maps a language tag to the in-process script sandbox or to a
// subprocess recipe.
type Dispatcher struct {
	logger   *zap.Logger
	script   *ScriptSandbox
	pipeline *Pipeline
	recipes  map[string]Recipe
	messages Messages
}

// DispatcherOption defines a functional option for Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherMessages sets the message catalog for Dispatcher
func WithDispatcherMessages(messages Messages) DispatcherOption {
	return func(d *Dispatcher) {
		d.messages = messages
	}
}

// NewDispatcher creates a Dispatcher. A nil script disables the in-process
// language.
func NewDispatcher(logger *zap.Logger, script *ScriptSandbox, pipeline *Pipeline, recipes map[string]Recipe, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger:   logger,
		script:   script,
		pipeline: pipeline,
		recipes:  recipes,
		messages: DefaultMessages(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Languages returns the recognized tags, sorted.
func (d *Dispatcher) Languages() []string {
	langs := make([]string, 0, len(d.recipes)+1)
	if d.script != nil {
		langs = append(langs, LanguageJavaScript)
	}
	for lang := range d.recipes {
		if lang == LanguageJavaScript && d.script != nil {
			continue
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Execute validates req and runs it. Rejected requests report zero time and
// never touch the filesystem. A panic inside a strategy is recovered and
// reported as an internal failure.
func (d *Dispatcher) Execute(ctx context.Context, req ExecutionRequest) (res ExecutionResult) {
	if req.Code == "" || req.Language == "" {
		return failed(ErrValidation, d.messages.MissingFields, nil)
	}

	strategy := d.lookup(req)
	if strategy == nil {
		d.logger.Info("rejected unsupported language", zap.String("language", req.Language))
		return failed(ErrUnsupportedLanguage, d.messages.UnsupportedLanguage, nil)
	}

	log := d.logger.With(
		zap.String("execution_id", uuid.NewString()),
		zap.String("language", req.Language))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("execution panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failed(ErrInternal, fmt.Sprintf(d.messages.Internal, r), nil).withElapsed(start)
		}
	}()

	log.Debug("execution started", zap.Int("code_len", len(req.Code)))
	res = strategy(ctx)
	log.Info("execution finished",
		zap.Bool("success", res.Success),
		zap.Float64("execution_time_ms", res.ExecutionTime),
		zap.Int("output_lines", len(res.Output)))

	return res
}

func (d *Dispatcher) lookup(req ExecutionRequest) func(context.Context) ExecutionResult {
	if req.Language == LanguageJavaScript && d.script != nil {
		return func(ctx context.Context) ExecutionResult {
			return d.script.Run(ctx, req.Code)
		}
	}

	recipe, ok := d.recipes[req.Language]
	if !ok || d.pipeline == nil {
		return nil
	}
	return func(ctx context.Context) ExecutionResult {
		return d.pipeline.Run(ctx, recipe, req)
	}
}
