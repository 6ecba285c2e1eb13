// Package sandbox provides the multi-language code execution engine.
//
// A Dispatcher validates each request and routes it by language tag.
// JavaScript runs in-process on an embedded goja runtime (ScriptSandbox),
// with console output captured per call and true preemption on timeout.
// Every other language follows a Recipe through the Pipeline: the source is
// staged in a scratch directory by the ArtifactStager, optionally compiled,
// run by the ToolchainRunner, and removed again on every exit path.
//
// All paths return an ExecutionResult with the same shape. Failures carry a
// classifying sentinel in ExecutionResult.Err so transports can map them to
// status codes with errors.Is.
//
// Code is not isolated from the host. Run the engine only where the host
// itself is disposable.
//
// Usage:
//
//	executor, err := sandbox.NewExecutor(logger, cfg)
//	result := executor.Execute(ctx, sandbox.ExecutionRequest{
//	    Language: "python",
//	    Code:     "print('Hello, World!')",
//	})
package sandbox
