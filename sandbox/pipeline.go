package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Pipeline runs a Recipe: stage, optionally compile, run, collect, clean up.
type Pipeline struct {
	logger    *zap.Logger
	stager    *ArtifactStager
	cmdRunner CommandRunner
	timeout   time.Duration
	messages  Messages
}

// PipelineOption defines a functional option for Pipeline
type PipelineOption func(*Pipeline)

// WithPipelineCommandRunner sets the CommandRunner for Pipeline
func WithPipelineCommandRunner(cmdRunner CommandRunner) PipelineOption {
	return func(p *Pipeline) {
		p.cmdRunner = cmdRunner
	}
}

// WithPipelineMessages sets the message catalog for Pipeline
func WithPipelineMessages(messages Messages) PipelineOption {
	return func(p *Pipeline) {
		p.messages = messages
	}
}

// NewPipeline creates a Pipeline. The timeout applies to each external
// invocation separately.
func NewPipeline(logger *zap.Logger, stager *ArtifactStager, timeout time.Duration, opts ...PipelineOption) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &Pipeline{
		logger:    logger,
		stager:    stager,
		cmdRunner: NewToolchainRunner(logger, 0),
		timeout:   timeout,
		messages:  DefaultMessages(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run executes req with recipe. Staged artifacts are removed on every exit
// path, and ExecutionTime covers everything up to and including cleanup.
func (p *Pipeline) Run(ctx context.Context, recipe Recipe, req ExecutionRequest) (res ExecutionResult) {
	start := time.Now()

	entry, ok := recipe.EntryName(req.Code)
	if !ok {
		return failed(ErrPrecondition, p.messages.MissingEntryPoint, nil)
	}

	artifact, err := p.stager.Stage(req.Code, recipe.stageHint(entry))
	if err != nil {
		p.logger.Error("failed to stage source", zap.String("language", recipe.Language), zap.Error(err))
		return failed(ErrStaging, err.Error(), nil).withElapsed(start)
	}

	defer func() {
		if cleanupErr := p.stager.Cleanup(artifact); cleanupErr != nil {
			p.logger.Warn("failed to clean up artifacts",
				zap.String("path", artifact.SourcePath),
				zap.Error(cleanupErr))
		}
		res.ExecutionTime = elapsedMs(start)
	}()

	if recipe.Compiled() {
		out, err := p.cmdRunner.RunCommand(ctx, Invocation{
			Args:    ExpandArgs(recipe.CompileCmd, artifact, entry),
			Dir:     artifact.Dir,
			Env:     recipe.Env,
			Timeout: p.timeout,
		})
		if failure, isFailure := p.compileFailure(out, err); isFailure {
			p.logger.Debug("compilation failed", zap.String("language", recipe.Language))
			return failure
		}
	}

	out, err := p.cmdRunner.RunCommand(ctx, Invocation{
		Args:    ExpandArgs(recipe.RunCmd, artifact, entry),
		Dir:     artifact.Dir,
		Stdin:   req.Input,
		Env:     recipe.Env,
		Timeout: p.timeout,
	})
	return p.collect(out, err)
}

// compileFailure treats stderr output, a spawn error or an unclean exit of
// the compile step as a compile error. Output is always empty.
func (p *Pipeline) compileFailure(out ToolchainOutput, err error) (ExecutionResult, bool) {
	switch {
	case errors.Is(err, ErrTimeout):
		return failed(ErrTimeout, p.messages.Timeout, nil), true
	case err != nil:
		diagnostic := out.Stderr
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return failed(ErrCompile, diagnostic, nil), true
	case out.Stderr != "":
		return failed(ErrCompile, out.Stderr, nil), true
	case !out.ExitedCleanly:
		return failed(ErrCompile, fmt.Sprintf(p.messages.ExitStatus, out.ExitCode), nil), true
	}
	return ExecutionResult{}, false
}

func (p *Pipeline) collect(out ToolchainOutput, err error) ExecutionResult {
	lines := splitOutput(out.Stdout)

	switch {
	case errors.Is(err, ErrTimeout):
		return failed(ErrTimeout, p.messages.Timeout, lines)
	case err != nil:
		return failed(ErrRuntime, err.Error(), lines)
	case out.Stderr != "":
		return failed(ErrRuntime, out.Stderr, lines)
	case !out.ExitedCleanly:
		return failed(ErrRuntime, fmt.Sprintf(p.messages.ExitStatus, out.ExitCode), lines)
	}
	return succeeded(p.messages.Completed, lines)
}

// splitOutput splits on line boundaries and drops blank lines.
func splitOutput(stdout string) []string {
	lines := []string{}
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
